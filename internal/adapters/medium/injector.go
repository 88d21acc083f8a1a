package medium

// PacketInjector puts raw radiotap frames on the air.
type PacketInjector interface {
	Inject(packet []byte) error
	Close()
}

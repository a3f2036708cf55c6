package ports

// FrameSource streams sealed transport frames from the device-pairing
// collaborator (Bluetooth bridge, replay file, simulator) into the
// pipeline. Frames are opaque bytes until the codec opens them.
type FrameSource interface {
	Start(out chan<- []byte) error
	Stop() error
}

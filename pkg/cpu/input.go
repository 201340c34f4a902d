package cpu

// KeyStatus is the packed key-state word a frontend publishes to the
// input cell once per frame. One bit per console button.
type KeyStatus uint16

const (
	KeySelect KeyStatus = 1 << iota
	KeyPause
	KeySecondary
	KeyMain
	KeyRight
	KeyUp
	KeyDown
	KeyLeft
)

// With returns the status with the given button bit set.
func (s KeyStatus) With(key KeyStatus) KeyStatus {
	return s | key
}

// Down reports whether the given button bit is set.
func (s KeyStatus) Down(key KeyStatus) bool {
	return s&key != 0
}

package session

// Real-time single-byte commands. Unlike SetFeedScale/SetSpindleScale
// (which set an override to an absolute value over the line protocol
// via M220/M223), these bypass the normal line buffer entirely and
// take effect immediately, the same way the teacher's grbl.Conn wrote
// '?'/'!'/'~' directly.
const (
	StatusQuery    byte = '?'
	FeedHoldByte   byte = '!'
	CycleStartByte byte = '~'
	SoftResetByte  byte = 0x18
)

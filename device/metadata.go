package device

import (
	"fmt"
	"math"
)

// TimeSpec is a device timestamp split into whole and fractional seconds.
type TimeSpec struct {
	FullSecs int64
	FracSecs float64
}

// TimeSpecFromTicks converts a sample count at rate into a TimeSpec.
func TimeSpecFromTicks(ticks int64, rate float64) TimeSpec {
	if rate <= 0 {
		return TimeSpec{}
	}
	whole := int64(float64(ticks) / rate)
	rem := float64(ticks) - float64(whole)*rate
	return TimeSpec{FullSecs: whole, FracSecs: rem / rate}
}

// Seconds returns the timestamp as a float.
func (t TimeSpec) Seconds() float64 {
	return float64(t.FullSecs) + t.FracSecs
}

// Add offsets the timestamp, keeping FracSecs in [0,1).
func (t TimeSpec) Add(secs float64) TimeSpec {
	whole, frac := math.Modf(t.FracSecs + secs)
	out := TimeSpec{FullSecs: t.FullSecs + int64(whole), FracSecs: frac}
	if out.FracSecs < 0 {
		out.FullSecs--
		out.FracSecs++
	}
	return out
}

// RxErrorCode is the per-call condition reported by a receive.
type RxErrorCode int

const (
	RxErrorNone RxErrorCode = iota
	RxErrorTimeout
	RxErrorLateCommand
	RxErrorBrokenChain
	RxErrorOverflow
	RxErrorAlignment
	RxErrorBadPacket
)

var rxErrorNames = map[RxErrorCode]string{
	RxErrorNone:        "none",
	RxErrorTimeout:     "timeout",
	RxErrorLateCommand: "late_command",
	RxErrorBrokenChain: "broken_chain",
	RxErrorOverflow:    "overflow",
	RxErrorAlignment:   "alignment",
	RxErrorBadPacket:   "bad_packet",
}

func (c RxErrorCode) String() string {
	if s, ok := rxErrorNames[c]; ok {
		return s
	}
	return fmt.Sprintf("rx_error(%d)", int(c))
}

// RxMetadata describes one receive call.
type RxMetadata struct {
	HasTimeSpec  bool
	TimeSpec     TimeSpec
	StartOfBurst bool
	EndOfBurst   bool
	ErrorCode    RxErrorCode
}

// TxMetadata describes one send call.
type TxMetadata struct {
	HasTimeSpec  bool
	TimeSpec     TimeSpec
	StartOfBurst bool
	EndOfBurst   bool
}

// StreamMode selects the behaviour of a stream command.
type StreamMode int

const (
	StreamModeStartContinuous StreamMode = iota
	StreamModeStopContinuous
	StreamModeNumSampsAndDone
	StreamModeNumSampsAndMore
)

func (m StreamMode) String() string {
	switch m {
	case StreamModeStartContinuous:
		return "start_continuous"
	case StreamModeStopContinuous:
		return "stop_continuous"
	case StreamModeNumSampsAndDone:
		return "num_samps_and_done"
	case StreamModeNumSampsAndMore:
		return "num_samps_and_more"
	default:
		return fmt.Sprintf("stream_mode(%d)", int(m))
	}
}

// StreamCommand is issued on an RX stream to start or stop sample flow.
type StreamCommand struct {
	Mode       StreamMode
	NumSamples int
	StreamNow  bool
	Time       TimeSpec
}

// StartContinuous returns the command that starts continuous streaming now.
func StartContinuous() StreamCommand {
	return StreamCommand{Mode: StreamModeStartContinuous, StreamNow: true}
}

// StopContinuous returns the command that stops continuous streaming.
func StopContinuous() StreamCommand {
	return StreamCommand{Mode: StreamModeStopContinuous, StreamNow: true}
}

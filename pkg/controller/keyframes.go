package controller

import (
	"fmt"

	"github.com/samcharles93/datkit/pkg/datio"
)

// MaxFrames is the most key frames a u16 frame count can describe.
const MaxFrames = 1<<16 - 1

// KeyFrame is one packed animation sample. Rotation is a quaternion scaled to
// int16.
type KeyFrame struct {
	Time        uint16
	Rotation    [4]int16
	Translation [3]float32
}

const keyFrameSize = 2 + 4*2 + 3*4

func decodeKeyFrames(cur *datio.Cursor) ([]KeyFrame, error) {
	n, err := cur.ReadU16()
	if err != nil {
		return nil, datio.WithField(err, "Frames")
	}
	if int(n)*keyFrameSize > cur.Remaining() {
		return nil, &datio.Error{
			Class:  datio.ErrStructural,
			Field:  "Frames",
			Offset: cur.Offset(),
			Reason: fmt.Sprintf("%d frames need %d bytes, %d remain", n, int(n)*keyFrameSize, cur.Remaining()),
		}
	}
	frames := make([]KeyFrame, n)
	for i := range frames {
		if err := datio.ReadValue(cur, &frames[i]); err != nil {
			return nil, datio.WithField(err, fmt.Sprintf("Frames[%d]", i))
		}
	}
	return frames, nil
}

func checkFrames(frames []KeyFrame) error {
	if len(frames) > MaxFrames {
		return &datio.Error{
			Class:  datio.ErrCapacity,
			Field:  "Frames",
			Offset: -1,
			Reason: fmt.Sprintf("%d frames, limit is %d", len(frames), MaxFrames),
			Err:    ErrTooManyFrames,
		}
	}
	return nil
}

func encodeKeyFrames(w *datio.Writer, frames []KeyFrame) error {
	if err := checkFrames(frames); err != nil {
		return err
	}
	w.WriteU16(uint16(len(frames)))
	for i := range frames {
		if err := datio.WriteValue(w, &frames[i]); err != nil {
			return datio.WithField(err, fmt.Sprintf("Frames[%d]", i))
		}
	}
	return nil
}

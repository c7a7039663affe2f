package debugger

import (
	"fmt"

	"github.com/gdbdap/gdbdap/service/api"
)

// Stacktrace returns the call stack of a thread, innermost frame
// first. The frame id is the backend's frame level, which is also what
// scope handles encode.
func (d *Debugger) Stacktrace(threadID int) ([]api.StackFrame, error) {
	if err := d.SendChecked(fmt.Sprintf("-thread-select %d", threadID), false); err != nil {
		return nil, fmt.Errorf("failed to select thread %d: %v", threadID, err)
	}
	records, err := d.Send("-stack-list-frames")
	if err != nil {
		return nil, err
	}
	if err := ResultErr(records); err != nil {
		return nil, err
	}
	var frames []api.StackFrame
	for _, f := range resultPayload(records).List("stack").Dicts() {
		name := f.Str("func")
		if name == "" {
			name = "<unknown>"
		}
		frames = append(frames, api.StackFrame{
			ID:       f.Int("level", len(frames)),
			Name:     name,
			File:     f.Str("file"),
			FullPath: f.Str("fullname"),
			Line:     f.Int("line", 0),
			Addr:     f.Str("addr"),
			From:     f.Str("from"),
			Arch:     f.Str("arch"),
		})
	}
	return frames, nil
}

// SelectFrame makes a frame of the current thread current. The current
// thread is whichever one the last stack trace selected.
func (d *Debugger) SelectFrame(frameID int) error {
	return d.SendChecked(fmt.Sprintf("-stack-select-frame %d", frameID), false)
}

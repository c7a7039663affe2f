package debugger

import (
	"fmt"
	"strings"

	"github.com/gdbdap/gdbdap/pkg/gdbmi"
)

// Continue resumes execution, of threadID only when positive.
func (d *Debugger) Continue(threadID int) error {
	cmd := "-exec-continue"
	if threadID > 0 {
		cmd = fmt.Sprintf("-exec-continue --thread %d", threadID)
	}
	return d.SendChecked(cmd, false)
}

// Next steps the thread over one source line.
func (d *Debugger) Next(threadID int) error {
	if err := d.selectThread(threadID); err != nil {
		return err
	}
	return d.SendChecked("-exec-next", false)
}

// StepIn steps the thread into calls on the current line.
func (d *Debugger) StepIn(threadID int) error {
	if err := d.selectThread(threadID); err != nil {
		return err
	}
	return d.SendChecked("-exec-step", false)
}

// StepOut runs the thread to the return of the current function. With
// singleThread set, only that thread runs while finishing.
func (d *Debugger) StepOut(threadID int, singleThread bool) error {
	if err := d.selectThread(threadID); err != nil {
		return err
	}
	locking := "off"
	if singleThread {
		locking = "on"
	}
	if err := d.SendChecked(fmt.Sprintf("set scheduler-locking %s", locking), false); err != nil {
		return err
	}
	// background form, the stop arrives as an asynchronous notification
	return d.SendChecked("finish &", false)
}

// Pause interrupts execution.
func (d *Debugger) Pause(threadID int) error {
	if threadID > 0 {
		// best effort, in all-stop mode the interrupt stops everything
		d.Send(fmt.Sprintf("-thread-select %d", threadID))
	}
	return d.SendChecked("-exec-interrupt", false)
}

// Evaluate runs expr as a console command and returns the accumulated
// console output. The expression is not restricted to actual
// expressions, any CLI command works.
func (d *Debugger) Evaluate(expr string) (string, error) {
	records, err := d.Send(expr)
	if err != nil {
		return "", err
	}
	if err := ResultErr(records); err != nil {
		return "", err
	}
	var out strings.Builder
	for _, rec := range records {
		if rec.Class == gdbmi.RecordConsole {
			out.WriteString(rec.Stream)
		}
	}
	return out.String(), nil
}

func (d *Debugger) selectThread(threadID int) error {
	if threadID <= 0 {
		return nil
	}
	if err := d.SendChecked(fmt.Sprintf("-thread-select %d", threadID), false); err != nil {
		return fmt.Errorf("failed to select thread %d: %v", threadID, err)
	}
	return nil
}

package debugger

import (
	"fmt"

	"github.com/gdbdap/gdbdap/service/api"
)

// Threads lists the threads of every attached inferior. Threads the
// target leaves unnamed get a fallback name from their target-id or
// numeric id.
func (d *Debugger) Threads() ([]api.Thread, error) {
	records, err := d.Send("-thread-info")
	if err != nil {
		return nil, err
	}
	if err := ResultErr(records); err != nil {
		return nil, err
	}
	var threads []api.Thread
	for _, th := range resultPayload(records).List("threads").Dicts() {
		id := th.Int("id", 0)
		if id == 0 {
			continue
		}
		t := api.Thread{
			ID:       id,
			Name:     th.Str("name"),
			TargetID: th.Str("target-id"),
			State:    th.Str("state"),
			Core:     th.Str("core"),
			Details:  th.Str("details"),
		}
		if t.Name == "" {
			t.Name = t.TargetID
		}
		if t.Name == "" {
			t.Name = fmt.Sprintf("Thread %d", id)
		}
		threads = append(threads, t)
	}
	return threads, nil
}

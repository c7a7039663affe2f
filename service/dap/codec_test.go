package dap

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-dap"
)

func frame(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestExtractFrame(t *testing.T) {
	body := `{"seq":1,"type":"request","command":"threads"}`
	for _, tc := range []struct {
		name     string
		input    string
		wantBody string
		wantRest string
		wantOk   bool
		wantErr  bool
	}{
		{"empty", "", "", "", false, false},
		{"partial header", "Content-Length: 10\r\n", "", "Content-Length: 10\r\n", false, false},
		{"partial body", frame(body)[:20], "", frame(body)[:20], false, false},
		{"complete", frame(body), body, "", true, false},
		{"complete with remainder", frame(body) + "Content-Len", body, "Content-Len", true, false},
		{"lowercase header", fmt.Sprintf("content-length: %d\r\n\r\n%s", len(body), body), body, "", true, false},
		{"extra headers", fmt.Sprintf("Content-Type: application/json\r\nContent-Length: %d\r\n\r\n%s", len(body), body), body, "", true, false},
		{"missing content length", "Content-Type: application/json\r\n\r\nleftover", "", "leftover", true, true},
		{"unparsable length", "Content-Length: bork\r\n\r\nleftover", "", "leftover", true, true},
		{"negative length", "Content-Length: -4\r\n\r\nleftover", "", "leftover", true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			gotBody, gotRest, gotOk, gotErr := extractFrame([]byte(tc.input))
			if gotOk != tc.wantOk {
				t.Fatalf("got ok=%v, want %v", gotOk, tc.wantOk)
			}
			if (gotErr != nil) != tc.wantErr {
				t.Fatalf("got err=%v, wantErr=%v", gotErr, tc.wantErr)
			}
			if tc.wantErr {
				if _, isFrameErr := gotErr.(*frameError); !isFrameErr {
					t.Errorf("got %T, want *frameError", gotErr)
				}
			}
			if string(gotBody) != tc.wantBody {
				t.Errorf("got body %q, want %q", gotBody, tc.wantBody)
			}
			if string(gotRest) != tc.wantRest {
				t.Errorf("got rest %q, want %q", gotRest, tc.wantRest)
			}
		})
	}
}

// A stream of back to back frames must be consumable one frame at a
// time regardless of how the bytes were chunked on arrival.
func TestExtractFrameStream(t *testing.T) {
	bodies := []string{
		`{"seq":1,"type":"request","command":"threads"}`,
		`{"seq":2,"type":"request","command":"disconnect"}`,
	}
	var stream bytes.Buffer
	for _, b := range bodies {
		stream.WriteString(frame(b))
	}
	buf := stream.Bytes()
	for i, want := range bodies {
		body, rest, ok, err := extractFrame(buf)
		if !ok || err != nil {
			t.Fatalf("frame %d: ok=%v err=%v", i, ok, err)
		}
		if string(body) != want {
			t.Errorf("frame %d: got %q, want %q", i, body, want)
		}
		buf = rest
	}
	if len(buf) != 0 {
		t.Errorf("got %d leftover bytes, want 0", len(buf))
	}
}

func TestDecodeMessage(t *testing.T) {
	msg, custom, err := decodeMessage([]byte(`{"seq":1,"type":"request","command":"threads"}`))
	if err != nil || custom != nil {
		t.Fatalf("got custom=%v err=%v, want typed message", custom, err)
	}
	if _, ok := msg.(*dap.ThreadsRequest); !ok {
		t.Errorf("got %T, want *dap.ThreadsRequest", msg)
	}

	msg, custom, err = decodeMessage([]byte(`{"seq":2,"type":"request","command":"listProcesses","arguments":{"x":1}}`))
	if err != nil || msg != nil {
		t.Fatalf("got msg=%v err=%v, want custom request", msg, err)
	}
	if custom == nil || custom.Command != "listProcesses" {
		t.Fatalf("got %#v, want listProcesses custom request", custom)
	}
	if string(custom.Arguments) != `{"x":1}` {
		t.Errorf("got arguments %s, want {\"x\":1}", custom.Arguments)
	}

	if _, _, err = decodeMessage([]byte(`not json`)); err == nil {
		t.Error("got nil error decoding garbage")
	}
	// unknown non-request types stay errors, only requests take the
	// custom path
	if _, custom, err = decodeMessage([]byte(`{"seq":3,"type":"event","event":"madeup"}`)); err == nil || custom != nil {
		t.Errorf("got custom=%v err=%v, want decode error", custom, err)
	}
}

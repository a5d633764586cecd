package invocation

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Config
		wantErr bool
	}{
		{name: "no arguments", args: nil, wantErr: true},
		{name: "program only", args: []string{"rustybus"}, wantErr: true},
		{name: "missing queue", args: []string{"rustybus", "send"}, wantErr: true},
		{name: "send", args: []string{"rustybus", "send", "orders"}, want: Config{Action: ActionSend, Queue: "orders"}},
		{name: "extra ignored", args: []string{"rustybus", "peek", "orders", "extra"}, want: Config{Action: ActionPeek, Queue: "orders"}},
		{name: "unknown kept verbatim", args: []string{"rustybus", "Send", "q"}, want: Config{Action: "Send", Queue: "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.args)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingArguments) {
					t.Fatalf("expected ErrMissingArguments, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestMissingArgumentsText(t *testing.T) {
	want := "Missing arguments. Usage: rustybus <send/receive/peek> <queue name>"
	if ErrMissingArguments.Error() != want {
		t.Fatalf("unexpected text %q", ErrMissingArguments.Error())
	}
}

func TestActionKnown(t *testing.T) {
	for _, a := range []Action{ActionSend, ActionReceive, ActionPeek} {
		if !a.Known() {
			t.Fatalf("expected %q to be known", a)
		}
	}
	for _, a := range []Action{"", "SEND", "delete"} {
		if a.Known() {
			t.Fatalf("expected %q to be unknown", a)
		}
	}
}

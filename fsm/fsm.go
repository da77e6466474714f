// Package fsm runs the bot's multi-step dialogues as explicit state machines.
// A Machine owns a transition table keyed on (state, input kind); the
// partially collected values live in a Dialog that is persisted between
// updates by a Store.
package fsm

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

type State string

// Done is the terminal state. Reaching it runs the machine's Complete hook.
const Done State = "done"

type InputKind int

const (
	Text InputKind = iota
	Photo
	// Finish is the "/done" command that closes a repeated section.
	Finish
)

func (k InputKind) String() string {
	switch k {
	case Text:
		return "text"
	case Photo:
		return "photo"
	case Finish:
		return "finish"
	default:
		return fmt.Sprintf("input(%d)", int(k))
	}
}

type Input struct {
	Kind   InputKind
	Text   string
	FileID string
}

// Dialog is the context object of one running flow for one chat.
type Dialog struct {
	Flow   string              `json:"flow"`
	State  State               `json:"state"`
	ChatID int64               `json:"chat_id"`
	UserID int64               `json:"user_id"`
	Fields map[string]string   `json:"fields,omitempty"`
	Item   map[string]string   `json:"item,omitempty"`
	Items  []map[string]string `json:"items,omitempty"`
	Files  []string            `json:"files,omitempty"`
}

func (d *Dialog) Set(key, value string) {
	if d.Fields == nil {
		d.Fields = make(map[string]string)
	}
	d.Fields[key] = value
}

func (d *Dialog) Get(key string) string {
	return d.Fields[key]
}

// SetItem stores a value on the repeated item being collected.
func (d *Dialog) SetItem(key, value string) {
	if d.Item == nil {
		d.Item = make(map[string]string)
	}
	d.Item[key] = value
}

// CommitItem appends the item in progress to Items and starts a new one.
func (d *Dialog) CommitItem() {
	if len(d.Item) == 0 {
		return
	}
	d.Items = append(d.Items, d.Item)
	d.Item = nil
}

// Handler consumes one input in the current state and names the next one.
type Handler func(ctx context.Context, d *Dialog, in Input) (State, error)

type Step struct {
	Prompt func(d *Dialog) string
	// Options are offered as quick replies, if any.
	Options func(d *Dialog) []string
	On      map[InputKind]Handler
}

// Machine is one flow: a named start state and its transition table.
type Machine struct {
	Name  string
	Start State
	Steps map[State]Step
	// Complete runs once the flow reaches Done and returns the closing message.
	Complete func(ctx context.Context, d *Dialog) (string, error)
}

type Reply struct {
	Text     string
	Options  []string
	Finished bool
}

// InputError rejects one input. The dialogue stays in its state.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func Invalid(format string, args ...interface{}) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

var (
	ErrUnknownState = errors.New("unknown dialogue state")
	// ErrAborted is returned by a handler when the user declines to go on.
	ErrAborted = errors.New("dialogue aborted")
)

// Begin creates a dialogue positioned at the machine's start state. fields
// seeds the context before the first prompt is rendered.
func (m *Machine) Begin(chatID, userID int64, fields map[string]string) (*Dialog, Reply, error) {
	d := &Dialog{Flow: m.Name, State: m.Start, ChatID: chatID, UserID: userID}
	for k, v := range fields {
		d.Set(k, v)
	}
	reply, err := m.prompt(d)
	return d, reply, err
}

// Feed advances d by one input. A rejected input yields the error text
// followed by the same prompt and leaves d unchanged in state. Errors other
// than InputError come from the handlers or from Complete and are returned
// as is.
func (m *Machine) Feed(ctx context.Context, d *Dialog, in Input) (Reply, error) {
	step, ok := m.Steps[d.State]
	if !ok {
		return Reply{}, errors.Wrapf(ErrUnknownState, "%s/%s", m.Name, d.State)
	}

	handler, ok := step.On[in.Kind]
	if !ok {
		return m.retry(d, &InputError{Message: unexpected(step)})
	}

	next, err := handler(ctx, d, in)
	if err != nil {
		var inputErr *InputError
		if errors.As(err, &inputErr) {
			return m.retry(d, inputErr)
		}
		return Reply{}, err
	}

	if next == Done {
		text, err := m.Complete(ctx, d)
		if err != nil {
			return Reply{}, err
		}
		d.State = Done
		return Reply{Text: text, Finished: true}, nil
	}

	d.State = next
	return m.prompt(d)
}

func (m *Machine) prompt(d *Dialog) (Reply, error) {
	step, ok := m.Steps[d.State]
	if !ok {
		return Reply{}, errors.Wrapf(ErrUnknownState, "%s/%s", m.Name, d.State)
	}
	reply := Reply{Text: step.Prompt(d)}
	if step.Options != nil {
		reply.Options = step.Options(d)
	}
	return reply, nil
}

func (m *Machine) retry(d *Dialog, inputErr *InputError) (Reply, error) {
	reply, err := m.prompt(d)
	if err != nil {
		return Reply{}, err
	}
	reply.Text = inputErr.Message + "\n\n" + reply.Text
	return reply, nil
}

func unexpected(step Step) string {
	if _, ok := step.On[Photo]; ok {
		if _, ok := step.On[Text]; !ok {
			return "Please send a photo."
		}
	}
	return "Please answer with text."
}

package protocol

import (
	"encoding/json"

	"github.com/agentwire/agentwire/errors"
)

type envelope struct {
	Type Type `json:"type"`
}

// Decode parses one raw frame payload into its typed message. A missing type
// discriminator is a protocol violation; an unrecognized one decodes to
// Unknown so that callers can skip it. Known messages are returned as
// pointers, so callers type-switch on *SessionStream, *ChatCompleted, etc.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrapf(err, "decode message envelope")
	}
	if env.Type == "" {
		return nil, errors.New("message has no type discriminator")
	}

	msg := newMessage(env.Type)
	if msg == nil {
		return Unknown{Type: env.Type}, nil
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, errors.Wrapf(err, "decode %q message", env.Type)
	}
	return msg, nil
}

// newMessage returns a pointer to the zero value for a known type, or nil for
// types outside the closed enumeration.
func newMessage(t Type) Message {
	switch t {
	case TypeReady:
		return &Ready{}
	case TypeSessionStart:
		return &SessionStart{}
	case TypeSessionStarted:
		return &SessionStarted{}
	case TypeSessionSend:
		return &SessionSend{}
	case TypeSessionStream:
		return &SessionStream{}
	case TypeSessionComplete:
		return &SessionComplete{}
	case TypeToolCall:
		return &ToolCall{}
	case TypeToolResult:
		return &ToolResult{}
	case TypeChatsCreate:
		return &ChatsCreate{}
	case TypeChatsCreateResult:
		return &ChatsCreateResult{}
	case TypeChatsList:
		return &ChatsList{}
	case TypeChatsListResult:
		return &ChatsListResult{}
	case TypeChatsGet:
		return &ChatsGet{}
	case TypeChatsGetResult:
		return &ChatsGetResult{}
	case TypeChatsCancel:
		return &ChatsCancel{}
	case TypeChatsCancelResult:
		return &ChatsCancelResult{}
	case TypeChatsSubscribe:
		return &ChatsSubscribe{}
	case TypeChatsError:
		return &ChatsError{}
	case TypeChatStarted:
		return &ChatStarted{}
	case TypeMessageDelta:
		return &MessageDelta{}
	case TypeChatCompleted:
		return &ChatCompleted{}
	case TypeChatCancelled:
		return &ChatCancelled{}
	case TypeChatFailed:
		return &ChatFailed{}
	default:
		return nil
	}
}

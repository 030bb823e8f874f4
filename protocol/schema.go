package protocol

import (
	"reflect"
	"strings"
)

// FieldSchema describes one JSON field of a protocol message.
type FieldSchema struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Optional bool   `json:"optional,omitempty"`
}

// MessageSchema describes one message type of the closed enumeration.
type MessageSchema struct {
	Type   Type          `json:"type"`
	Fields []FieldSchema `json:"fields"`
}

var allTypes = []Type{
	TypeReady,
	TypeSessionStart, TypeSessionStarted, TypeSessionSend,
	TypeSessionStream, TypeSessionComplete,
	TypeToolCall, TypeToolResult,
	TypeChatsCreate, TypeChatsCreateResult,
	TypeChatsList, TypeChatsListResult,
	TypeChatsGet, TypeChatsGetResult,
	TypeChatsCancel, TypeChatsCancelResult,
	TypeChatsSubscribe, TypeChatsError,
	TypeChatStarted, TypeMessageDelta,
	TypeChatCompleted, TypeChatCancelled, TypeChatFailed,
}

// Schemas enumerates every message type with its field shapes, derived by
// reflection over the wire structs. This backs the CLI's schema introspection
// output.
func Schemas() []MessageSchema {
	schemas := make([]MessageSchema, 0, len(allTypes))
	for _, t := range allTypes {
		msg := newMessage(t)
		schemas = append(schemas, MessageSchema{
			Type:   t,
			Fields: fieldsOf(reflect.TypeOf(msg).Elem()),
		})
	}
	return schemas
}

func fieldsOf(st reflect.Type) []FieldSchema {
	var fields []FieldSchema
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag := f.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fields = append(fields, FieldSchema{
			Name:     name,
			Kind:     kindName(f.Type),
			Optional: strings.Contains(opts, "omitempty"),
		})
	}
	return fields
}

func kindName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Map:
		return "object"
	case reflect.Slice:
		return "array of " + kindName(t.Elem())
	case reflect.Struct:
		if t.PkgPath() == "time" && t.Name() == "Time" {
			return "timestamp"
		}
		return "object"
	default:
		return t.Kind().String()
	}
}

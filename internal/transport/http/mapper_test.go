package http

import (
	"encoding/json"
	"testing"
	"time"

	"chatrelay/internal/core"
	"chatrelay/internal/proto"
)

func TestInboundToCommand(t *testing.T) {
	client := core.NewClient("c1", "alice")

	tests := []struct {
		name     string
		inbound  proto.Inbound
		wantKind core.CommandKind
		wantErr  string // expected proto error code, empty if none
	}{
		{
			name:     "join",
			inbound:  proto.Inbound{Type: proto.InboundTypeJoin, Data: json.RawMessage(`{"room":"general"}`)},
			wantKind: core.CommandJoinRoom,
		},
		{
			name:     "leave",
			inbound:  proto.Inbound{Type: proto.InboundTypeLeave, Data: json.RawMessage(`{"room":"general"}`)},
			wantKind: core.CommandLeaveRoom,
		},
		{
			name:     "msg",
			inbound:  proto.Inbound{Type: proto.InboundTypeMsg, Data: json.RawMessage(`{"room":"general","sender":"bob","content":"hi"}`)},
			wantKind: core.CommandSendRoomMessage,
		},
		{
			name:    "join without room",
			inbound: proto.Inbound{Type: proto.InboundTypeJoin, Data: json.RawMessage(`{}`)},
			wantErr: core.ErrCodeBadRequest,
		},
		{
			name:    "msg without room",
			inbound: proto.Inbound{Type: proto.InboundTypeMsg, Data: json.RawMessage(`{"content":"hi"}`)},
			wantErr: core.ErrCodeBadRequest,
		},
		{
			name:    "unknown type",
			inbound: proto.Inbound{Type: "dance", Data: json.RawMessage(`{}`)},
			wantErr: "invalid_message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, protoErr, err := inboundToCommand(client, tt.inbound)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != "" {
				if protoErr == nil || protoErr.Code != tt.wantErr {
					t.Fatalf("expected proto error %q, got %+v", tt.wantErr, protoErr)
				}
				return
			}
			if protoErr != nil {
				t.Fatalf("unexpected proto error: %+v", protoErr)
			}
			if cmd.Kind != tt.wantKind {
				t.Fatalf("expected kind %d, got %d", tt.wantKind, cmd.Kind)
			}
		})
	}
}

func TestInboundMsgSenderFallsBackToClientName(t *testing.T) {
	client := core.NewClient("c1", "alice")

	cmd, protoErr, err := inboundToCommand(client, proto.Inbound{
		Type: proto.InboundTypeMsg,
		Data: json.RawMessage(`{"room":"general","content":"hi"}`),
	})
	if err != nil || protoErr != nil {
		t.Fatalf("unexpected errors: %v %+v", err, protoErr)
	}
	if cmd.Sender != "alice" {
		t.Fatalf("expected sender to fall back to client name, got %q", cmd.Sender)
	}
}

func TestOutboundFromEvent(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	out := outboundFromEvent(&core.Event{
		Kind: core.EventRoomMessage,
		Room: "general",
		Message: core.Message{
			ID:        42,
			Room:      "general",
			Sender:    "alice",
			Content:   "hi",
			Timestamp: ts,
		},
	})
	if out.Type != proto.OutboundTypeEvent || out.Event != "message" {
		t.Fatalf("unexpected outbound envelope: %+v", out)
	}
	msg, ok := out.Data.(proto.EventMessage)
	if !ok {
		t.Fatalf("unexpected data type: %T", out.Data)
	}
	if msg.ID != 42 || msg.Sender != "alice" || msg.Timestamp != ts.UnixMilli() {
		t.Fatalf("unexpected event message: %+v", msg)
	}

	out = outboundFromEvent(&core.Event{
		Kind:  core.EventError,
		Error: &core.CoreError{Code: core.ErrCodeRoomNotFound, Message: "room not found"},
	})
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != core.ErrCodeRoomNotFound {
		t.Fatalf("unexpected error envelope: %+v", out)
	}
}

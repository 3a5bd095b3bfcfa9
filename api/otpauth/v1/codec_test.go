package otpauthv1

import (
	"strings"
	"testing"

	"google.golang.org/grpc/encoding"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestCodec_Registered(t *testing.T) {
	if c := encoding.GetCodec(CodecName); c == nil {
		t.Fatal("json codec not registered")
	}
}

func TestCodec_Struct(t *testing.T) {
	var c Codec
	b, err := c.Marshal(&VerifyCodeRequest{Email: "a@example.com", Code: "123456"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"email":"a@example.com","code":"123456"}` {
		t.Errorf("Marshal = %s", b)
	}

	var got VerifyCodeRequest
	if err := c.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Email != "a@example.com" || got.Code != "123456" {
		t.Errorf("Unmarshal = %+v", got)
	}
}

func TestCodec_EmptyBody(t *testing.T) {
	var req GetSessionRequest
	if err := (Codec{}).Unmarshal(nil, &req); err != nil {
		t.Errorf("Unmarshal(nil): %v", err)
	}
}

func TestCodec_ProtoMessage(t *testing.T) {
	var c Codec
	in := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}
	b, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), "SERVING") {
		t.Errorf("Marshal = %s, want protojson enum name", b)
	}
	out := &healthpb.HealthCheckResponse{}
	if err := c.Unmarshal(b, out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Status = %v, want SERVING", out.Status)
	}
}

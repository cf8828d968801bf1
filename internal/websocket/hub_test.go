package websocket

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var secret = []byte("ws-secret")

func newServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, secret) })
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, srv
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString(), "role": role}).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func wsURL(srv *httptest.Server, tok string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + tok
}

func TestServeWs_Rejects(t *testing.T) {
	_, srv := newServer(t)

	tests := []struct {
		name string
		tok  string
		want int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "abc", http.StatusUnauthorized},
		{"unknown role", token(t, "guest"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := gorilla.DefaultDialer.Dial(wsURL(srv, tt.tok), nil)
			if err == nil {
				t.Fatal("dial succeeded")
			}
			if resp == nil || resp.StatusCode != tt.want {
				t.Fatalf("response = %v, want status %d", resp, tt.want)
			}
		})
	}
}

func TestHub_PublishReachesClient(t *testing.T) {
	hub, srv := newServer(t)

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(srv, token(t, "viewer")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// registration is asynchronous; publish until the client sees an event
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Publish(map[string]string{"type": "activated", "spec_code": "PE1140301"})
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	first := bytes.SplitN(msg, []byte{'\n'}, 2)[0]
	var event map[string]string
	if err := json.Unmarshal(first, &event); err != nil {
		t.Fatalf("decode %q: %v", first, err)
	}
	if event["type"] != "activated" || event["spec_code"] != "PE1140301" {
		t.Errorf("event = %v", event)
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(zap.NewNop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			hub.Publish(map[string]int{"n": i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}

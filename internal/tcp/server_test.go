package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/example/homecare/backend/internal/models"
	"github.com/example/homecare/backend/internal/service"
)

func startTestServer(t *testing.T, maxConnections, maxPayloadBytes int) (*Server, *ConnManager, string) {
	t.Helper()
	dispatcher, _ := newTestDispatcher(t)

	manager := NewConnManager(maxConnections)
	server := NewServer(ServerConfig{
		Addr:            "127.0.0.1:0",
		MaxConnections:  maxConnections,
		MaxPayloadBytes: maxPayloadBytes,
		IdleTimeout:     5 * time.Second,
	}, manager, dispatcher)
	if err := server.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("server did not shut down")
		}
	})
	return server, manager, server.Address()
}

func readEnvelope(t *testing.T, reader *bufio.Reader) map[string]any {
	t.Helper()
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(line, &envelope); err != nil {
		t.Fatalf("decode response %q: %v", line, err)
	}
	return envelope
}

func TestServerAnswersFragmentedRequest(t *testing.T) {
	_, _, address := startTestServer(t, 10, 1<<20)

	connection, err := net.Dial("tcp", address)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer connection.Close()

	request := `{"type":"STAFF_GET_INSPECTION_DETAIL","data":{"bookingId":123}}` + "\n"
	// Write the request in three fragments to exercise reassembly.
	for _, part := range []string{request[:10], request[10:30], request[30:]} {
		if _, err := connection.Write([]byte(part)); err != nil {
			t.Fatalf("write fragment: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	reader := bufio.NewReader(connection)
	envelope := readEnvelope(t, reader)
	// No report seeded: the answer is a well-formed 404 error envelope.
	if envelope["statusCode"].(float64) != 404 {
		t.Fatalf("statusCode = %v, want 404", envelope["statusCode"])
	}
	if envelope["error"].(string) != service.CodeNotFound {
		t.Fatalf("error = %v, want %s", envelope["error"], service.CodeNotFound)
	}
}

func TestServerProcessesPipelinedRequestsInOrder(t *testing.T) {
	_, _, address := startTestServer(t, 10, 1<<20)

	connection, err := net.Dial("tcp", address)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer connection.Close()

	pipelined := `{"type":"NOPE_A"}` + "\n" + `{"type":"NOPE_B"}` + "\n"
	if _, err := connection.Write([]byte(pipelined)); err != nil {
		t.Fatalf("write: %v", err)
	}

	reader := bufio.NewReader(connection)
	first := readEnvelope(t, reader)
	second := readEnvelope(t, reader)
	if !strings.Contains(first["message"].(map[string]any)["message"].(string), "NOPE_A") {
		t.Fatalf("first response is not for NOPE_A: %v", first)
	}
	if !strings.Contains(second["message"].(map[string]any)["message"].(string), "NOPE_B") {
		t.Fatalf("second response is not for NOPE_B: %v", second)
	}
}

func TestServerOversizePayloadLeavesConnectionUsable(t *testing.T) {
	_, _, address := startTestServer(t, 10, 256)

	connection, err := net.Dial("tcp", address)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer connection.Close()
	reader := bufio.NewReader(connection)

	// An oversized frame gets a 413 and must not poison the connection.
	oversize := `{"type":"STAFF_CHECK_OUT","data":{"note":"` + strings.Repeat("x", 512) + `"}}` + "\n"
	if _, err := connection.Write([]byte(oversize)); err != nil {
		t.Fatalf("write oversize: %v", err)
	}
	envelope := readEnvelope(t, reader)
	if envelope["statusCode"].(float64) != 413 {
		t.Fatalf("statusCode = %v, want 413", envelope["statusCode"])
	}
	if envelope["error"].(string) != service.CodePayloadTooLarge {
		t.Fatalf("error = %v, want %s", envelope["error"], service.CodePayloadTooLarge)
	}

	// The next request on the same connection still gets served.
	valid := `{"type":"STAFF_GET_INSPECTION_DETAIL","data":{"bookingId":1}}` + "\n"
	if _, err := connection.Write([]byte(valid)); err != nil {
		t.Fatalf("write valid: %v", err)
	}
	envelope = readEnvelope(t, reader)
	if envelope["error"].(string) != service.CodeNotFound {
		t.Fatalf("error = %v, want %s", envelope["error"], service.CodeNotFound)
	}
}

func TestServerRejectsMalformedJSONKeepsConnection(t *testing.T) {
	_, _, address := startTestServer(t, 10, 1<<20)

	connection, err := net.Dial("tcp", address)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer connection.Close()
	reader := bufio.NewReader(connection)

	if _, err := connection.Write([]byte("this is not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	envelope := readEnvelope(t, reader)
	if envelope["error"].(string) != service.CodeInvalidJSON {
		t.Fatalf("error = %v, want %s", envelope["error"], service.CodeInvalidJSON)
	}
	if envelope["statusCode"].(float64) != 400 {
		t.Fatalf("statusCode = %v, want 400", envelope["statusCode"])
	}

	if _, err := connection.Write([]byte(`{"type":"STAFF_GET_INSPECTION_DETAIL","data":{"bookingId":1}}` + "\n")); err != nil {
		t.Fatalf("write valid: %v", err)
	}
	envelope = readEnvelope(t, reader)
	if envelope["error"].(string) != service.CodeNotFound {
		t.Fatalf("error = %v, want %s", envelope["error"], service.CodeNotFound)
	}
}

func TestServerRefusesConnectionsAtCapacity(t *testing.T) {
	_, manager, address := startTestServer(t, 1, 1<<20)

	first, err := net.Dial("tcp", address)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()

	// Make sure the first connection is admitted before dialing the second.
	deadline := time.Now().Add(2 * time.Second)
	for manager.Stats().ActiveConnections < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("first connection never admitted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	second, err := net.Dial("tcp", address)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	// The refused connection is closed without any response.
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := second.Read(buf); err == nil {
		t.Fatalf("expected refused connection to be closed")
	}
}

func TestServerEndToEndWorkflow(t *testing.T) {
	dispatcher, db := newTestDispatcher(t)
	booking := seedBooking(t, db, models.BookingStatusConfirmed)

	manager := NewConnManager(10)
	server := NewServer(ServerConfig{
		Addr:        "127.0.0.1:0",
		IdleTimeout: 5 * time.Second,
	}, manager, dispatcher)
	if err := server.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx)
	t.Cleanup(func() { server.Close() })

	connection, err := net.Dial("tcp", server.Address())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer connection.Close()
	reader := bufio.NewReader(connection)

	send := func(requestType string, data map[string]any) map[string]any {
		t.Helper()
		raw, _ := json.Marshal(map[string]any{"type": requestType, "data": data})
		if _, err := connection.Write(append(raw, '\n')); err != nil {
			t.Fatalf("write %s: %v", requestType, err)
		}
		return readEnvelope(t, reader)
	}

	checkIn := send("STAFF_CREATE_WORK_LOG", map[string]any{
		"staffId":   booking.StaffID,
		"bookingId": booking.ID,
	})
	if checkIn["success"] != true {
		t.Fatalf("check-in failed: %v", checkIn)
	}

	checkOut := send("STAFF_CHECK_OUT", map[string]any{"bookingId": booking.ID})
	if checkOut["success"] != true {
		t.Fatalf("checkout failed: %v", checkOut)
	}

	var updated models.Booking
	if err := db.First(&updated, "id = ?", booking.ID).Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if updated.Status != models.BookingStatusCompleted {
		t.Fatalf("booking status = %s, want COMPLETED", updated.Status)
	}
}

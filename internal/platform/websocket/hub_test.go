package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/consult/consult/internal/platform/eventstore"
)

// ---------------------------------------------------------------------------
// Hub tests
// ---------------------------------------------------------------------------

func TestHub_RegisterClient(t *testing.T) {
	hub := NewHub()
	client := &Client{
		ID:     "client-1",
		Topics: []string{"consultations/123"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount("consultations/123") != 1 {
		t.Fatalf("expected 1 client on consultations/123, got %d", hub.TopicCount("consultations/123"))
	}
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub()
	client := &Client{
		ID:     "client-2",
		Topics: []string{"consultations/456"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount("consultations/456") != 0 {
		t.Fatalf("expected 0 clients on consultations/456, got %d", hub.TopicCount("consultations/456"))
	}
}

func TestHub_BroadcastToTopic(t *testing.T) {
	hub := NewHub()

	subscriber := &Client{
		ID:     "sub-1",
		Topics: []string{"consultations/123"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	nonSubscriber := &Client{
		ID:     "non-sub-1",
		Topics: []string{"sessions/999"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}

	hub.Register(subscriber)
	hub.Register(nonSubscriber)

	event := Event{
		Type:           "consultation.event",
		Topic:          "consultations/123",
		EventType:      "MESSAGE_RECEIVED",
		ConsultationID: "123",
		Timestamp:      time.Now(),
	}

	hub.Broadcast("consultations/123", event)

	select {
	case msg := <-subscriber.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		if received.Type != "consultation.event" {
			t.Fatalf("expected event type consultation.event, got %s", received.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case <-nonSubscriber.Send:
		t.Fatal("non-subscriber should not have received event")
	default:
		// expected
	}
}

func TestHub_BroadcastAll(t *testing.T) {
	hub := NewHub()

	c1 := &Client{
		ID:     "all-1",
		Topics: []string{"consultations/1"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	c2 := &Client{
		ID:     "all-2",
		Topics: []string{"sessions/2"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}

	hub.Register(c1)
	hub.Register(c2)

	event := Event{
		Type:           "system.alert",
		Topic:          "system",
				Timestamp:      time.Now(),
	}

	hub.BroadcastAll(event)

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.Send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("failed to unmarshal: %v", err)
			}
			if received.Type != "system.alert" {
				t.Fatalf("expected system.alert, got %s", received.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive broadcast", c.ID)
		}
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := NewHub()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0, got %d", hub.ClientCount())
	}

	clients := make([]*Client, 5)
	for i := range clients {
		clients[i] = &Client{
			ID:     "count-" + string(rune('a'+i)),
			Topics: []string{"Topic/x"},
			Send:   make(chan []byte, 256),
			hub:    hub,
		}
		hub.Register(clients[i])
	}

	if hub.ClientCount() != 5 {
		t.Fatalf("expected 5, got %d", hub.ClientCount())
	}

	hub.Unregister(clients[0])
	hub.Unregister(clients[1])

	if hub.ClientCount() != 3 {
		t.Fatalf("expected 3, got %d", hub.ClientCount())
	}
}

func TestHub_TopicCount(t *testing.T) {
	hub := NewHub()

	c1 := &Client{
		ID:     "tc-1",
		Topics: []string{"consultations/1"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	c2 := &Client{
		ID:     "tc-2",
		Topics: []string{"consultations/1"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	c3 := &Client{
		ID:     "tc-3",
		Topics: []string{"sessions/5"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if hub.TopicCount("consultations/1") != 2 {
		t.Fatalf("expected 2 on consultations/1, got %d", hub.TopicCount("consultations/1"))
	}
	if hub.TopicCount("sessions/5") != 1 {
		t.Fatalf("expected 1 on sessions/5, got %d", hub.TopicCount("sessions/5"))
	}
	if hub.TopicCount("NonExistent") != 0 {
		t.Fatalf("expected 0 on NonExistent, got %d", hub.TopicCount("NonExistent"))
	}
}

func TestHub_MultipleTopics(t *testing.T) {
	hub := NewHub()

	client := &Client{
		ID:     "multi-1",
		Topics: []string{"consultations/1", "sessions/2"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	hub.Register(client)

	event := Event{
		Type:           "consultation.event",
		Topic:          "consultations/1",
		EventType:      "MESSAGE_RECEIVED",
		ConsultationID: "1",
		Timestamp:      time.Now(),
	}
	hub.Broadcast("consultations/1", event)

	select {
	case msg := <-client.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if received.Topic != "consultations/1" {
			t.Fatalf("expected topic consultations/1, got %s", received.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive event on consultations/1")
	}

	// Verify client is registered on both topics
	if hub.TopicCount("consultations/1") != 1 {
		t.Fatalf("expected 1 on consultations/1, got %d", hub.TopicCount("consultations/1"))
	}
	if hub.TopicCount("sessions/2") != 1 {
		t.Fatalf("expected 1 on sessions/2, got %d", hub.TopicCount("sessions/2"))
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	client := &Client{
		ID:     "close-1",
		Topics: []string{"Topic/a"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}

	hub.Register(client)
	hub.Unregister(client)

	// Reading from a closed channel returns zero value immediately
	_, ok := <-client.Send
	if ok {
		t.Fatal("expected Send channel to be closed after unregister")
	}
}

func TestHub_BroadcastToEmptyTopic(t *testing.T) {
	hub := NewHub()

	event := Event{
		Type:           "consultation.event",
		Topic:          "NoOneHere",
		EventType:      "MESSAGE_RECEIVED",
		ConsultationID: "999",
		Timestamp:      time.Now(),
	}

	// Should not panic
	hub.Broadcast("NoOneHere", event)
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n * 2)

	clients := make([]*Client, n)
	for i := 0; i < n; i++ {
		clients[i] = &Client{
			ID:     "concurrent-" + string(rune(i)),
			Topics: []string{"Topic/concurrent"},
			Send:   make(chan []byte, 256),
			hub:    hub,
		}
	}

	// Register all concurrently
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}

	// Unregister all concurrently
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}

	wg.Wait()

	// Final count should be consistent (all registered then unregistered, or some mix)
	count := hub.ClientCount()
	if count < 0 {
		t.Fatalf("client count should not be negative, got %d", count)
	}
}

// ---------------------------------------------------------------------------
// Event tests
// ---------------------------------------------------------------------------

func TestEvent_JSONSerialization(t *testing.T) {
	ts := time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)
	event := Event{
		Type:           "consultation.event",
		Topic:          "consultations/abc-123",
		EventType:      "MESSAGE_RECEIVED",
		ConsultationID: "abc-123",
		Timestamp:      ts,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}

	if decoded.Type != event.Type {
		t.Fatalf("Type mismatch: %s vs %s", decoded.Type, event.Type)
	}
	if decoded.Topic != event.Topic {
		t.Fatalf("Topic mismatch: %s vs %s", decoded.Topic, event.Topic)
	}
	if decoded.EventType != event.EventType {
		t.Fatalf("EventType mismatch: %s vs %s", decoded.EventType, event.EventType)
	}
	if decoded.ConsultationID != event.ConsultationID {
		t.Fatalf("ConsultationID mismatch: %s vs %s", decoded.ConsultationID, event.ConsultationID)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Fatalf("Timestamp mismatch: %v vs %v", decoded.Timestamp, event.Timestamp)
	}
}

func TestEvent_WithData(t *testing.T) {
	payload := json.RawMessage(`{"state":"RESPONDING","iteration":2}`)
	event := Event{
		Type:           "consultation.event",
		Topic:          "consultations/xyz",
		EventType:      "MESSAGE_RECEIVED",
		ConsultationID: "xyz",
		Timestamp:      time.Now(),
		Data:           payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event with data: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal event with data: %v", err)
	}

	if decoded.Data == nil {
		t.Fatal("expected Data to be non-nil")
	}

	var payloadMap map[string]interface{}
	if err := json.Unmarshal(decoded.Data, &payloadMap); err != nil {
		t.Fatalf("failed to unmarshal Data payload: %v", err)
	}
	if payloadMap["state"] != "RESPONDING" {
		t.Fatalf("expected state RESPONDING, got %v", payloadMap["state"])
	}
}

// ---------------------------------------------------------------------------
// Publisher tests
// ---------------------------------------------------------------------------

func TestHub_PublishEvent(t *testing.T) {
	hub := NewHub()

	client := &Client{
		ID:     "pub-1",
		Topics: []string{"audit/100"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	hub.Register(client)

	var publisher EventPublisher = hub

	event := Event{
		Type:           "consultation.event",
		Topic:          "audit/100",
		EventType:      "MESSAGE_RECEIVED",
		ConsultationID: "100",
		Timestamp:      time.Now(),
	}

	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-client.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if received.ConsultationID != "100" {
			t.Fatalf("expected ConsultationID 100, got %s", received.ConsultationID)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive published event")
	}
}

func TestHub_PublishBroadcastsToSubscribers(t *testing.T) {
	hub := NewHub()

	c1 := &Client{
		ID:     "multi-pub-1",
		Topics: []string{"consultations/200"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	c2 := &Client{
		ID:     "multi-pub-2",
		Topics: []string{"consultations/200"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	c3 := &Client{
		ID:     "multi-pub-3",
		Topics: []string{"sessions/300"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	event := Event{
		Type:           "consultation.event",
		Topic:          "consultations/200",
		EventType:      "MESSAGE_RECEIVED",
		ConsultationID: "200",
		Timestamp:      time.Now(),
	}

	if err := hub.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Both subscribers should get the event
	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.Send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client %s: failed to unmarshal: %v", c.ID, err)
			}
			if received.ConsultationID != "200" {
				t.Fatalf("client %s: expected ConsultationID 200, got %s", c.ID, received.ConsultationID)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive event", c.ID)
		}
	}

	// Non-subscriber should not receive it
	select {
	case <-c3.Send:
		t.Fatal("c3 should not have received event for consultations/200")
	default:
		// expected
	}
}

// ---------------------------------------------------------------------------
// Handler tests
// ---------------------------------------------------------------------------

func TestWebSocketHandler_RegisterRoutes(t *testing.T) {
	hub := NewHub()
	handler := NewWebSocketHandler(hub)

	e := echo.New()
	g := e.Group("")
	handler.RegisterRoutes(g)

	want := map[string]bool{
		"/ws":                   false,
		"/ws/consultations/:id": false,
	}
	for _, r := range e.Routes() {
		if _, ok := want[r.Path]; ok && r.Method == http.MethodGet {
			want[r.Path] = true
		}
	}
	for path, found := range want {
		if !found {
			t.Fatalf("expected GET %s route to be registered", path)
		}
	}
}

func TestWebSocketHandler_ConsultationStreamRejectsBadID(t *testing.T) {
	hub := NewHub()
	handler := NewWebSocketHandler(hub)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws/consultations/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := handler.HandleConsultationStream(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", he.Code)
	}
}

func TestWebSocketHandler_SubscribeMessage(t *testing.T) {
	msg := ClientMessage{
		Action: "subscribe",
		Topics: []string{"consultations/123", "sessions/*"},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded ClientMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.Action != "subscribe" {
		t.Fatalf("expected action subscribe, got %s", decoded.Action)
	}
	if len(decoded.Topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(decoded.Topics))
	}
	if decoded.Topics[0] != "consultations/123" {
		t.Fatalf("expected consultations/123, got %s", decoded.Topics[0])
	}
	if decoded.Topics[1] != "sessions/*" {
		t.Fatalf("expected sessions/*, got %s", decoded.Topics[1])
	}
}

func TestWebSocketHandler_UnsubscribeMessage(t *testing.T) {
	msg := ClientMessage{
		Action: "unsubscribe",
		Topics: []string{"consultations/123"},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded ClientMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.Action != "unsubscribe" {
		t.Fatalf("expected action unsubscribe, got %s", decoded.Action)
	}
	if len(decoded.Topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(decoded.Topics))
	}
}

func TestWebSocketHandler_InvalidMessage(t *testing.T) {
	invalidJSON := `{not valid json`

	var msg ClientMessage
	err := json.Unmarshal([]byte(invalidJSON), &msg)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestWebSocketHandler_HandleConnectRequiresWebSocket(t *testing.T) {
	hub := NewHub()
	handler := NewWebSocketHandler(hub)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleConnect(c)

	// gorilla/websocket upgrader will reject non-WS requests
	if err == nil && rec.Code == http.StatusSwitchingProtocols {
		t.Fatal("expected upgrade to fail for non-websocket request")
	}
}

func TestHub_SubscribeAddsTopics(t *testing.T) {
	hub := NewHub()
	client := &Client{
		ID:     "dynamic-sub-1",
		Topics: []string{},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	hub.Register(client)

	hub.Subscribe(client, []string{"consultations/new", "sessions/new"})

	if hub.TopicCount("consultations/new") != 1 {
		t.Fatalf("expected 1 on consultations/new, got %d", hub.TopicCount("consultations/new"))
	}
	if hub.TopicCount("sessions/new") != 1 {
		t.Fatalf("expected 1 on sessions/new, got %d", hub.TopicCount("sessions/new"))
	}
	if len(client.Topics) != 2 {
		t.Fatalf("expected 2 topics on client, got %d", len(client.Topics))
	}
}

func TestHub_UnsubscribeRemovesTopics(t *testing.T) {
	hub := NewHub()
	client := &Client{
		ID:     "dynamic-unsub-1",
		Topics: []string{"consultations/1", "sessions/2", "audit/3"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	hub.Register(client)

	hub.Unsubscribe(client, []string{"consultations/1", "audit/3"})

	if hub.TopicCount("consultations/1") != 0 {
		t.Fatalf("expected 0 on consultations/1, got %d", hub.TopicCount("consultations/1"))
	}
	if hub.TopicCount("sessions/2") != 1 {
		t.Fatalf("expected 1 on sessions/2, got %d", hub.TopicCount("sessions/2"))
	}
	if hub.TopicCount("audit/3") != 0 {
		t.Fatalf("expected 0 on audit/3, got %d", hub.TopicCount("audit/3"))
	}
	if len(client.Topics) != 1 {
		t.Fatalf("expected 1 topic remaining, got %d", len(client.Topics))
	}
}

func TestClientMessage_ProcessSubscribe(t *testing.T) {
	hub := NewHub()
	client := &Client{
		ID:     "process-1",
		Topics: []string{},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	hub.Register(client)

	raw := `{"action":"subscribe","topics":["consultations/123","sessions/*"]}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	hub.ProcessMessage(client, msg)

	if hub.TopicCount("consultations/123") != 1 {
		t.Fatalf("expected 1 subscriber on consultations/123, got %d", hub.TopicCount("consultations/123"))
	}
}

func TestClientMessage_ProcessUnsubscribe(t *testing.T) {
	hub := NewHub()
	client := &Client{
		ID:     "process-2",
		Topics: []string{"consultations/123", "sessions/456"},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	hub.Register(client)

	raw := `{"action":"unsubscribe","topics":["consultations/123"]}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	hub.ProcessMessage(client, msg)

	if hub.TopicCount("consultations/123") != 0 {
		t.Fatalf("expected 0 on consultations/123, got %d", hub.TopicCount("consultations/123"))
	}
	if hub.TopicCount("sessions/456") != 1 {
		t.Fatalf("expected 1 on sessions/456, got %d", hub.TopicCount("sessions/456"))
	}
}

func TestWebSocketHandler_FullUpgradeWithDialer(t *testing.T) {
	hub := NewHub()
	handler := NewWebSocketHandler(hub)

	e := echo.New()
	g := e.Group("")
	handler.RegisterRoutes(g)

	server := httptest.NewServer(e)
	defer server.Close()

	// Convert http URL to ws URL
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	dialer := gorillawebsocket.Dialer{}
	conn, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	// Client should have been registered in the hub
	// Give the goroutine a moment to register
	time.Sleep(50 * time.Millisecond)
	if hub.ClientCount() < 1 {
		t.Fatal("expected at least 1 client registered after connect")
	}

	// Send a subscribe message
	subMsg := ClientMessage{
		Action: "subscribe",
		Topics: []string{"consultations/test-ws"},
	}
	if err := conn.WriteJSON(subMsg); err != nil {
		t.Fatalf("failed to send subscribe: %v", err)
	}

	// Give the server time to process the subscribe
	time.Sleep(50 * time.Millisecond)

	if hub.TopicCount("consultations/test-ws") != 1 {
		t.Fatalf("expected 1 subscriber on consultations/test-ws, got %d", hub.TopicCount("consultations/test-ws"))
	}

	// Now broadcast an event and verify we receive it
	event := Event{
		Type:           "consultation.event",
		Topic:          "consultations/test-ws",
		EventType:      "MESSAGE_RECEIVED",
		ConsultationID: "test-ws",
		Timestamp:      time.Now(),
	}
	hub.Broadcast("consultations/test-ws", event)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if received.Type != "consultation.event" {
		t.Fatalf("expected consultation.event, got %s", received.Type)
	}
	if received.ConsultationID != "test-ws" {
		t.Fatalf("expected ConsultationID test-ws, got %s", received.ConsultationID)
	}
}

// ---------------------------------------------------------------------------
// Notifier tests
// ---------------------------------------------------------------------------

func TestNotifier_PublishEvent(t *testing.T) {
	hub := NewHub()
	consultationID := uuid.New()

	client := &Client{
		ID:     "stream-1",
		Topics: []string{ConsultationTopic(consultationID)},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	hub.Register(client)

	notifier := NewNotifier(hub)
	notifier.PublishEvent(consultationID, &eventstore.Event{
		EventID:        uuid.New(),
		ConsultationID: consultationID,
		SequenceNo:     4,
		EventType:      "URGENCY_CLASSIFIED",
		Payload:        json.RawMessage(`{"gravity_score":7.5}`),
		Timestamp:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})

	select {
	case msg := <-client.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if received.EventType != "URGENCY_CLASSIFIED" {
			t.Fatalf("expected URGENCY_CLASSIFIED, got %s", received.EventType)
		}
		if received.SequenceNo != 4 {
			t.Fatalf("expected sequence 4, got %d", received.SequenceNo)
		}
		if received.ConsultationID != consultationID.String() {
			t.Fatalf("expected consultation %s, got %s", consultationID, received.ConsultationID)
		}
		if received.Data != nil {
			t.Fatal("event payload must not be forwarded to subscribers")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive notification")
	}
}

func TestNotifier_SkipsOtherConsultations(t *testing.T) {
	hub := NewHub()
	watched := uuid.New()
	other := uuid.New()

	client := &Client{
		ID:     "stream-2",
		Topics: []string{ConsultationTopic(watched)},
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
	hub.Register(client)

	notifier := NewNotifier(hub)
	notifier.PublishEvent(other, &eventstore.Event{
		EventID:        uuid.New(),
		ConsultationID: other,
		SequenceNo:     1,
		EventType:      "CONSULTATION_STARTED",
		Timestamp:      time.Now(),
	})

	select {
	case <-client.Send:
		t.Fatal("client received an event for a consultation it does not watch")
	default:
		// expected
	}
}

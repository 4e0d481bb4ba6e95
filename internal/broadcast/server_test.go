package broadcast

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestServer_HandleLine_FirstLineIsHeaderOnly(t *testing.T) {
	s := NewServer("unused.csv", zerolog.Nop())
	s.handleLine("timestamp,1_bid_price,1_bid_vol")
	if len(s.header) != 3 {
		t.Fatalf("expected header to be captured, got %v", s.header)
	}
}

func TestServer_HandleLine_BroadcastsRowAsJSON(t *testing.T) {
	s := NewServer("unused.csv", zerolog.Nop())
	s.header = []string{"timestamp", "mid_price"}
	_, received := s.register()

	s.handleLine("123,25.5000")

	select {
	case data := <-received:
		var row Row
		if err := json.Unmarshal(data, &row); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if row["timestamp"] != "123" || row["mid_price"] != "25.5000" {
			t.Errorf("unexpected row: %+v", row)
		}
	default:
		t.Fatal("expected a broadcast message, got none")
	}
}

func TestServer_HandleLine_MismatchedColumnCountDropped(t *testing.T) {
	s := NewServer("unused.csv", zerolog.Nop())
	s.header = []string{"timestamp", "mid_price"}
	_, received := s.register()

	s.handleLine("123,25.5000,extra")

	select {
	case <-received:
		t.Fatal("expected no broadcast for a malformed row")
	default:
	}
}

func TestServer_Unregister_ClosesSendChannel(t *testing.T) {
	s := NewServer("unused.csv", zerolog.Nop())
	id, received := s.register()
	s.unregister(id)

	if _, open := <-received; open {
		t.Fatal("expected the send channel to be closed after unregister")
	}
}

func TestPoll_IgnoresTrailingPartialLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.csv")
	if err := os.WriteFile(path, []byte("timestamp,mid_price\n123,25.5000\n124,25.6"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := NewServer(path, zerolog.Nop())
	var offset int64
	if err := s.poll(&offset); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if s.header == nil {
		t.Fatal("expected header to be parsed")
	}
	// Only the header and one complete data row should have advanced the
	// offset; the trailing partial line must remain unread.
	if offset != int64(len("timestamp,mid_price\n123,25.5000\n")) {
		t.Errorf("expected offset to stop before the partial line, got %d", offset)
	}
}

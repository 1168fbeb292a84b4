package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/janelia-flyem/neuprep/neuprep"
)

type fakeClient struct {
	ranges   map[string][][]string
	appended map[string][][]string
	err      error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		ranges:   make(map[string][][]string),
		appended: make(map[string][][]string),
	}
}

func (f *fakeClient) Values(ctx context.Context, rng string) ([][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append(f.ranges[rng], f.appended[rng]...), nil
}

func (f *fakeClient) Append(ctx context.Context, rng string, rows [][]string) error {
	if f.err != nil {
		return f.err
	}
	f.appended[rng] = append(f.appended[rng], rows...)
	return nil
}

func TestFirstColumn(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want neuprep.Identifiers
	}{
		{
			name: "header",
			rows: [][]string{{"root_id"}, {"720575940621039145"}, {"720575940611111111", "note"}},
			want: neuprep.Identifiers{"720575940621039145", "720575940611111111"},
		},
		{
			name: "no header",
			rows: [][]string{{"5813"}, {"1234"}},
			want: neuprep.Identifiers{"5813", "1234"},
		},
		{
			name: "blanks and duplicates",
			rows: [][]string{{"5813"}, {}, {"  "}, {" 5813 "}, {"42"}},
			want: neuprep.Identifiers{"5813", "42"},
		},
		{
			name: "empty",
			rows: nil,
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := firstColumn(tc.rows)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("expected %v, got %v", tc.want, got)
					break
				}
			}
		})
	}
}

func TestPendingAndAppend(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.ranges["requests!A:A"] = [][]string{{"id"}, {"1"}, {"2"}, {"3"}}
	client.ranges["processed!A:C"] = [][]string{{"1", "2026-01-01T00:00:00Z", "done"}, {"2", "2026-01-01T00:00:00Z", "failed"}}

	pending, err := Pending(ctx, client, "requests!A:A", "processed!A:C")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0] != "2" || pending[1] != "3" {
		t.Errorf("unexpected pending ids %v", pending)
	}

	when := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	records := []Processed{{ID: "2", Status: StatusDone, Time: when}, {ID: "3", Status: StatusMissing}}
	if err := AppendProcessed(ctx, client, "processed!A:C", records); err != nil {
		t.Fatal(err)
	}
	rows := client.appended["processed!A:C"]
	if len(rows) != 2 || rows[0][0] != "2" || rows[0][1] != "2026-10-16T12:00:00Z" || rows[0][2] != "done" {
		t.Errorf("unexpected appended rows %v", rows)
	}
	if rows[1][1] == "" || rows[1][2] != "missing" {
		t.Errorf("expected timestamp and status for second row, got %v", rows[1])
	}

	pending, err = Pending(ctx, client, "requests!A:A", "processed!A:C")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0] != "3" {
		t.Errorf("expected only 3 pending, got %v", pending)
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.err = errors.New("quota exceeded")
	if _, err := Requests(ctx, client, "requests!A:A"); err == nil {
		t.Errorf("expected read error")
	}
	if err := AppendProcessed(ctx, client, "processed!A:C", []Processed{{ID: "1", Status: StatusDone}}); err == nil {
		t.Errorf("expected append error")
	}
	if err := AppendProcessed(ctx, client, "processed!A:C", nil); err != nil {
		t.Errorf("appending nothing should not touch the client: %v", err)
	}
	if _, err := NewGoogleClient(ctx, "no-such-credentials.json", "sheet"); err == nil {
		t.Errorf("expected missing credentials error")
	}
}

func TestThrottle(t *testing.T) {
	client := newFakeClient()
	client.ranges["requests!A:A"] = [][]string{{"7"}}
	throttled := Throttle(client, 1000, 0)
	ids, err := Requests(context.Background(), throttled, "requests!A:A")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "7" {
		t.Errorf("unexpected ids %v", ids)
	}

	slow := Throttle(client, 0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := slow.Values(ctx, "requests!A:A"); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := slow.Append(ctx, "processed!A:C", [][]string{{"7"}}); err == nil {
		t.Errorf("expected canceled context to stop a throttled call")
	}
}

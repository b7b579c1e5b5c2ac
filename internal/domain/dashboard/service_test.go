package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
)

type stubFetcher struct {
	prediction cycle.Prediction
	err        error
	calls      []int64
}

func (s *stubFetcher) FetchPrediction(_ context.Context, userID int64) (cycle.Prediction, error) {
	s.calls = append(s.calls, userID)
	return s.prediction, s.err
}

type stubAsker struct {
	reply ChatReply
	err   error
}

func (s stubAsker) Ask(context.Context, string) (ChatReply, error) {
	return s.reply, s.err
}

func newTestService(f PredictionFetcher, a ChatAsker) *Service {
	return NewService(f, a, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func samplePrediction() cycle.Prediction {
	return cycle.Prediction{
		PredictedNextCycle:   cycle.NewDate(2024, time.March, 1),
		FertileWindowStart:   cycle.NewDate(2024, time.February, 10),
		FertileWindowEnd:     cycle.NewDate(2024, time.February, 15),
		PredictedCycleLength: 28,
	}
}

func TestServicePredictStoresPrediction(t *testing.T) {
	fetcher := &stubFetcher{prediction: samplePrediction()}
	svc := newTestService(fetcher, stubAsker{})
	sess := NewSessionStore(time.Hour).Create()

	svc.Predict(context.Background(), sess, 3)

	snap := sess.Snapshot()
	require.Equal(t, []int64{3}, fetcher.calls)
	require.Equal(t, int64(3), snap.UserID)
	require.NotNil(t, snap.Prediction)
	require.NotNil(t, snap.Timeline)
	men := snap.Timeline.Segments[0]
	require.Equal(t, cycle.PhaseMenstruation, men.Phase)
	require.Equal(t, "2024-02-02", men.Start.String())
}

func TestServicePredictFailureKeepsPriorState(t *testing.T) {
	fetcher := &stubFetcher{prediction: samplePrediction()}
	svc := newTestService(fetcher, stubAsker{})
	sess := NewSessionStore(time.Hour).Create()
	svc.Predict(context.Background(), sess, 1)

	fetcher.err = errors.New("boom")
	fetcher.prediction = cycle.Prediction{}
	svc.Predict(context.Background(), sess, 2)

	snap := sess.Snapshot()
	require.NotNil(t, snap.Prediction)
	require.Equal(t, "2024-03-01", snap.Prediction.PredictedNextCycle.String())
}

func TestServiceAskMessages(t *testing.T) {
	cases := []struct {
		name  string
		asker stubAsker
		want  string
	}{
		{name: "answer", asker: stubAsker{reply: ChatReply{Response: "Track for three months."}}, want: "Track for three months."},
		{name: "empty", asker: stubAsker{}, want: NoResponseMessage},
		{name: "failure", asker: stubAsker{err: errors.New("dial tcp: refused")}, want: ErrorMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(&stubFetcher{}, tc.asker)
			sess := NewSessionStore(time.Hour).Create()

			got := svc.Ask(context.Background(), sess, "Why is my cycle late?")

			require.Equal(t, tc.want, got)
			snap := sess.Snapshot()
			require.Equal(t, "Why is my cycle late?", snap.Question)
			require.Equal(t, tc.want, snap.Response)
		})
	}
}

func TestServiceAskLeavesPredictionAlone(t *testing.T) {
	svc := newTestService(&stubFetcher{prediction: samplePrediction()}, stubAsker{err: errors.New("down")})
	sess := NewSessionStore(time.Hour).Create()
	svc.Predict(context.Background(), sess, 1)

	svc.Ask(context.Background(), sess, "hi")

	snap := sess.Snapshot()
	require.NotNil(t, snap.Prediction)
	require.Equal(t, ErrorMessage, snap.Response)
}

func TestServiceConcurrentActions(t *testing.T) {
	svc := newTestService(&stubFetcher{prediction: samplePrediction()}, stubAsker{reply: ChatReply{Response: "ok"}})
	sess := NewSessionStore(time.Hour).Create()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			svc.Ask(context.Background(), sess, "q")
		}()
		go func() {
			defer wg.Done()
			_ = sess.Snapshot()
		}()
	}
	wg.Wait()
	require.Equal(t, "ok", sess.Snapshot().Response)
}

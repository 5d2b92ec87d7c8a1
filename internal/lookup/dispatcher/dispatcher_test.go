package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"lookout/internal/lookup/adapters"
	"lookout/internal/lookup/adapters/mocks"
	"lookout/internal/lookup/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type DispatcherSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	query models.Query
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.query = models.Query{Raw: "+14155550000", Normalized: "+14155550000", Kind: models.KindPhone}
}

func (s *DispatcherSuite) adapter(kind adapters.Kind) *mocks.MockAdapter {
	m := mocks.NewMockAdapter(s.ctrl)
	m.EXPECT().Kind().Return(kind).AnyTimes()
	return m
}

func (s *DispatcherSuite) dispatcher(timeout time.Duration, list ...adapters.Adapter) *Dispatcher {
	reg, err := adapters.NewRegistry(list...)
	s.Require().NoError(err)
	d, err := New(reg, WithTimeouts(func(string) time.Duration { return timeout }))
	s.Require().NoError(err)
	return d
}

// =============================================================================
// Result cardinality and alignment
// =============================================================================

func (s *DispatcherSuite) TestOneResultPerRequestedKindInRequestOrder() {
	ok := s.adapter(adapters.KindTruecaller)
	ok.EXPECT().Invoke(gomock.Any(), "+14155550000").
		Return(adapters.Ok(adapters.KindTruecaller, map[string]any{"name": "Jane"}, models.LookupFound), nil)

	failed := s.adapter(adapters.KindInstagram)
	failed.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(adapters.Response{}, errors.New("connection refused"))

	declined := s.adapter(adapters.KindSnapchat)
	declined.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(adapters.Fail(adapters.KindSnapchat, "status 500"), nil)

	kinds := []adapters.Kind{adapters.KindSnapchat, adapters.KindTruecaller, adapters.KindHIBP, adapters.KindInstagram}
	results := s.dispatcher(time.Second, ok, failed, declined).Dispatch(context.Background(), s.query, kinds)

	s.Require().Len(results, len(kinds))
	for i, k := range kinds {
		s.Equal(k.String(), results[i].Source)
	}
	s.Equal(models.StatusError, results[0].Status)
	s.Equal("status 500", results[0].Error)
	s.Equal(models.StatusOK, results[1].Status)
	s.Equal(models.LookupFound, results[1].Lookup)
	s.Equal("Jane", results[1].Payload["name"])
	s.Equal(models.StatusSkipped, results[2].Status)
	s.Equal(models.StatusError, results[3].Status)
	s.Contains(results[3].Error, "connection refused")
}

func (s *DispatcherSuite) TestEmptyRequest() {
	results := s.dispatcher(time.Second).Dispatch(context.Background(), s.query, nil)
	s.Empty(results)
}

// =============================================================================
// Failure isolation
// =============================================================================

func (s *DispatcherSuite) TestTimeoutDoesNotBlockSiblings() {
	slow := s.adapter(adapters.KindDataBreach)
	slow.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (adapters.Response, error) {
			<-ctx.Done()
			time.Sleep(20 * time.Millisecond)
			return adapters.Ok(adapters.KindDataBreach, nil, models.LookupFound), nil
		})

	fast := s.adapter(adapters.KindTruecaller)
	fast.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(adapters.Ok(adapters.KindTruecaller, map[string]any{}, models.LookupNotFound), nil)

	start := time.Now()
	results := s.dispatcher(50*time.Millisecond, slow, fast).Dispatch(context.Background(), s.query,
		[]adapters.Kind{adapters.KindDataBreach, adapters.KindTruecaller})

	s.Less(time.Since(start), 60*time.Millisecond+20*time.Millisecond*2)
	s.Equal(models.StatusError, results[0].Status)
	s.Equal(string(adapters.ErrorTimeout), results[0].Category)
	s.Equal(models.StatusOK, results[1].Status)
}

func (s *DispatcherSuite) TestPanicBecomesErrorResult() {
	boom := s.adapter(adapters.KindMicrosoftPhone)
	boom.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string) (adapters.Response, error) {
			panic("nil map write")
		})

	fine := s.adapter(adapters.KindIPQualityScore)
	fine.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(adapters.Ok(adapters.KindIPQualityScore, map[string]any{"valid": true}, models.LookupFound), nil)

	results := s.dispatcher(time.Second, boom, fine).Dispatch(context.Background(), s.query,
		[]adapters.Kind{adapters.KindMicrosoftPhone, adapters.KindIPQualityScore})

	s.Equal(models.StatusError, results[0].Status)
	s.Contains(results[0].Error, "panicked")
	s.Equal(models.StatusOK, results[1].Status)
}

func (s *DispatcherSuite) TestNotConfiguredIsSkipped() {
	unconfigured := s.adapter(adapters.KindHIBP)
	unconfigured.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(adapters.Response{}, adapters.NewProviderError(adapters.ErrorNotConfigured, adapters.KindHIBP, "missing credentials", adapters.ErrNotConfigured))

	email := models.Query{Raw: "jane@example.com", Normalized: "jane@example.com", Kind: models.KindEmail}
	results := s.dispatcher(time.Second, unconfigured).Dispatch(context.Background(), email, []adapters.Kind{adapters.KindHIBP})

	s.Equal(models.StatusSkipped, results[0].Status)
	s.Equal(string(adapters.ErrorNotConfigured), results[0].Category)
}

func (s *DispatcherSuite) TestParentCancellationYieldsErrors() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blocked := s.adapter(adapters.KindTruecaller)
	blocked.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (adapters.Response, error) {
			cancel()
			<-ctx.Done()
			return adapters.Response{}, ctx.Err()
		})

	results := s.dispatcher(time.Second, blocked).Dispatch(ctx, s.query, []adapters.Kind{adapters.KindTruecaller})

	s.Require().Len(results, 1)
	s.Equal(models.StatusError, results[0].Status)
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New(nil)
	if err == nil {
		t.Fatal("expected error for nil adapter source")
	}
}

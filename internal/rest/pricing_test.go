package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flexiprice/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPricingService struct {
	result domain.BatchDiscount
	err    error
}

func (s *stubPricingService) Preview(context.Context, uint64) (domain.BatchDiscount, error) {
	return s.result, s.err
}

func (s *stubPricingService) Compute(context.Context, uint64, bool) (domain.BatchDiscount, error) {
	return s.result, s.err
}

type stubDiscountReader struct {
	discount domain.BatchDiscount
	found    bool
}

func (s *stubDiscountReader) FindCurrent(context.Context, uint64) (domain.BatchDiscount, bool, error) {
	return s.discount, s.found, nil
}

func (s *stubDiscountReader) History(context.Context, uint64, int) ([]domain.BatchDiscount, error) {
	return nil, nil
}

func newBatchContext(batchID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("batch_id")
	c.SetParamValues(batchID)
	return c, rec
}

func TestPreview_UnknownBatchReturns404(t *testing.T) {
	svc := &stubPricingService{err: fmt.Errorf("load batch: %w", domain.ErrBatchNotFound)}
	h := NewPricingHandler(svc, &stubDiscountReader{}, nil)

	c, rec := newBatchContext("42")
	require.NoError(t, h.Preview(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActiveDiscount_ExpiredDiscountNotServed(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	reader := &stubDiscountReader{
		discount: domain.BatchDiscount{BatchID: 42, ExpiresAt: &expired},
		found:    true,
	}
	h := NewPricingHandler(&stubPricingService{}, reader, nil)

	c, rec := newBatchContext("42")
	require.NoError(t, h.ActiveDiscount(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActiveDiscount_LiveDiscountServed(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour)
	reader := &stubDiscountReader{
		discount: domain.BatchDiscount{BatchID: 42, ExpiresAt: &expires},
		found:    true,
	}
	h := NewPricingHandler(&stubPricingService{}, reader, nil)

	c, rec := newBatchContext("42")
	require.NoError(t, h.ActiveDiscount(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

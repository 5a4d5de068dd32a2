package bodymetrics_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/Flynotfly/gymstat/internal/api"
	"github.com/Flynotfly/gymstat/internal/bodymetrics"
	"github.com/Flynotfly/gymstat/internal/testinternals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func TestRepo_Metrics(t *testing.T) {
	backend := testinternals.NewBackend()
	defer backend.Close()
	repo := bodymetrics.NewRepo(backend.NewLoggedInClient())
	ctx := context.Background()

	backend.SeedMetric(bodymetrics.Metric{Name: "Weight", Unit: "kg", Admin: true})
	backend.SeedMetric(bodymetrics.Metric{Name: "Body fat", Unit: "%", Admin: true})

	created, err := repo.CreateMetric(ctx, bodymetrics.Metric{ID: 5, Name: "Waist", Unit: "cm"})
	require.NoError(t, err)
	assert.NotEqual(t, 5, created.ID)
	assert.Equal(t, testinternals.TestUserID, created.Owner)

	all, err := repo.ListMetrics(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all.Results, 3)
	assert.Equal(t, []string{"Body fat", "Waist", "Weight"}, []string{all.Results[0].Name, all.Results[1].Name, all.Results[2].Name})
	req, ok := backend.LastRequest(http.MethodGet, "/metrics/metrics/")
	require.True(t, ok)
	assert.Equal(t, "type=all", req.Query)

	admin, err := repo.ListMetrics(ctx, bodymetrics.TypeAdmin, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, admin.Count)

	got, err := repo.GetMetric(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	got.Description = "at the navel"
	updated, err := repo.UpdateMetric(ctx, got.ID, *got)
	require.NoError(t, err)
	assert.Equal(t, "at the navel", updated.Description)

	require.NoError(t, repo.DeleteMetric(ctx, got.ID))
	_, err = repo.GetMetric(ctx, got.ID)
	assert.ErrorIs(t, err, bodymetrics.ErrMetricNotFound)
	_, err = repo.UpdateMetric(ctx, got.ID, *got)
	assert.ErrorIs(t, err, bodymetrics.ErrMetricNotFound)
	assert.ErrorIs(t, repo.DeleteMetric(ctx, got.ID), bodymetrics.ErrMetricNotFound)
}

func TestRepo_Records(t *testing.T) {
	backend := testinternals.NewBackend()
	defer backend.Close()
	repo := bodymetrics.NewRepo(backend.NewLoggedInClient())
	ctx := context.Background()

	weight := backend.SeedMetric(bodymetrics.Metric{Name: "Weight", Unit: "kg"})
	other := backend.SeedMetric(bodymetrics.Metric{Name: "Waist", Unit: "cm"})

	_, err := repo.ListRecords(ctx, 0, 1)
	assert.ErrorIs(t, err, bodymetrics.ErrMetricRequired)
	_, err = repo.CreateRecord(ctx, bodymetrics.Record{Value: 80})
	assert.ErrorIs(t, err, bodymetrics.ErrMetricRequired)
	assert.Zero(t, backend.CountRequests(http.MethodPost, "/metrics/records/"))

	base := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := repo.CreateRecord(ctx, bodymetrics.Record{
			Metric:   weight.ID,
			Value:    80 - float64(i)/2,
			Datetime: base.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}

	before := time.Now().UTC().Add(-time.Second)
	noTime, err := repo.CreateRecord(ctx, bodymetrics.Record{Metric: other.ID, Value: 90})
	require.NoError(t, err)
	assert.True(t, noTime.Datetime.After(before), "datetime defaults to now")

	first, err := repo.ListRecords(ctx, weight.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Count)
	require.Len(t, first.Results, 3)
	assert.Equal(t, 78.5, first.Results[0].Value, "newest first")
	assert.Equal(t, 2, first.NextPage())

	second, err := repo.ListRecords(ctx, weight.ID, first.NextPage())
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.Equal(t, 80.0, second.Results[0].Value)
	req, ok := backend.LastRequest(http.MethodGet, "/metrics/records/")
	require.True(t, ok)
	assert.Equal(t, "metric="+strconv.Itoa(weight.ID)+"&page=2", req.Query)

	rec := second.Results[0]
	rec.Value = 79.9
	updated, err := repo.UpdateRecord(ctx, rec.ID, rec)
	require.NoError(t, err)
	assert.Equal(t, 79.9, updated.Value)

	got, err := repo.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 79.9, got.Value)

	require.NoError(t, repo.DeleteRecord(ctx, rec.ID))
	_, err = repo.GetRecord(ctx, rec.ID)
	assert.ErrorIs(t, err, bodymetrics.ErrRecordNotFound)
	_, err = repo.UpdateRecord(ctx, rec.ID, rec)
	assert.ErrorIs(t, err, bodymetrics.ErrRecordNotFound)
	assert.ErrorIs(t, repo.DeleteRecord(ctx, rec.ID), bodymetrics.ErrRecordNotFound)

	// records of an unknown metric are refused by the backend
	_, err = repo.CreateRecord(ctx, bodymetrics.Record{Metric: 4242, Value: 1})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
}

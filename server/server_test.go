package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecast/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePredictor struct {
	value float64
	err   error
	panic bool

	mu     sync.Mutex
	fields map[string]float64
}

func (f *fakePredictor) PredictFields(fields map[string]float64) (float64, error) {
	if f.panic {
		panic("index out of range")
	}
	f.mu.Lock()
	f.fields = fields
	f.mu.Unlock()
	return f.value, f.err
}

const validBody = `{"price":10.5,"discount":0.1,"qty_last_7d":70,"qty_last_30d":300,"dow":2,"month":6}`

type response struct {
	Message    string   `json:"message"`
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, response) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var res response
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w.Code, res
}

// trainedArtifact fits a small pipeline on price and discount with the columns listed in the
// opposite order of the request struct
func trainedArtifact(t *testing.T, features []string) *pipeline.Artifact {
	m := 40
	x := mat.NewDense(m, len(features), nil)
	y := mat.NewDense(m, 1, nil)
	for i := 0; i < m; i++ {
		discount := float64(i%4) * 0.1
		price := 5 + float64((i*7)%11)
		x.Set(i, 0, discount)
		x.Set(i, 1, price)
		y.Set(i, 0, 3*price-10*discount)
	}

	opt := pipeline.NewDefaultOptions()
	opt.RandomForest.NumTrees = 5
	opt.Depthwise.NumRounds = 20
	opt.Leafwise.NumRounds = 20
	opt.Leafwise.MinSamplesLeaf = 3

	p, err := pipeline.New(opt)
	require.Nil(t, err)
	require.Nil(t, p.Fit(x, y))

	art, err := pipeline.NewArtifact(p, "sales", features, nil, nil)
	require.Nil(t, err)
	return art
}

func TestHome(t *testing.T) {
	r := New(&fakePredictor{}).Router()
	code, res := do(t, r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "API is running", res.Message)
}

func TestPredict(t *testing.T) {
	testData := map[string]struct {
		predictor *fakePredictor
		body      string
		code      int
		expected  float64
		errSubstr string
	}{
		"valid": {
			predictor: &fakePredictor{value: 42.5},
			body:      validBody,
			code:      http.StatusOK,
			expected:  42.5,
		},
		"zero valued required fields": {
			predictor: &fakePredictor{value: 1},
			body:      `{"price":0,"discount":0,"qty_last_7d":0,"qty_last_30d":0,"dow":0,"month":0}`,
			code:      http.StatusOK,
			expected:  1,
		},
		"missing required field": {
			predictor: &fakePredictor{},
			body:      `{"price":10.5,"discount":0.1,"qty_last_7d":70,"qty_last_30d":300,"month":6}`,
			code:      http.StatusBadRequest,
			errSubstr: "Invalid request",
		},
		"wrong type": {
			predictor: &fakePredictor{},
			body:      `{"price":"cheap","discount":0.1,"qty_last_7d":70,"qty_last_30d":300,"dow":2,"month":6}`,
			code:      http.StatusBadRequest,
			errSubstr: "Invalid request",
		},
		"malformed json": {
			predictor: &fakePredictor{},
			body:      `{"price":`,
			code:      http.StatusBadRequest,
			errSubstr: "Invalid request",
		},
		"predictor error": {
			predictor: &fakePredictor{err: errors.New("feature mismatch")},
			body:      validBody,
			code:      http.StatusInternalServerError,
			errSubstr: "feature mismatch",
		},
		"predictor panic": {
			predictor: &fakePredictor{panic: true},
			body:      validBody,
			code:      http.StatusInternalServerError,
			errSubstr: "index out of range",
		},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			r := New(td.predictor).Router()
			code, res := do(t, r, http.MethodPost, "/predict", td.body)
			assert.Equal(t, td.code, code)
			if td.errSubstr != "" {
				assert.Contains(t, res.Error, td.errSubstr)
				assert.Nil(t, res.Prediction)
				return
			}
			require.NotNil(t, res.Prediction)
			assert.Equal(t, td.expected, *res.Prediction)
		})
	}
}

func TestPredictOptionalDefaults(t *testing.T) {
	fp := &fakePredictor{}
	r := New(fp).Router()
	code, _ := do(t, r, http.MethodPost, "/predict", validBody)
	require.Equal(t, http.StatusOK, code)

	require.Len(t, fp.fields, 21)
	assert.Equal(t, 10.5, fp.fields["price"])
	assert.Equal(t, 2.0, fp.fields["dow"])
	assert.Equal(t, 0.0, fp.fields["sales_lag_30"])
	assert.Equal(t, 0.0, fp.fields["is_off_season"])
}

func TestPredictArtifact(t *testing.T) {
	art := trainedArtifact(t, []string{"discount", "price"})
	expected, err := art.PredictFields(map[string]float64{"price": 10.5, "discount": 0.1})
	require.Nil(t, err)

	r := New(art).Router()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, res := do(t, r, http.MethodPost, "/predict", validBody)
			assert.Equal(t, http.StatusOK, code)
			if assert.NotNil(t, res.Prediction) {
				assert.InDelta(t, expected, *res.Prediction, 1e-9)
			}
		}()
	}
	wg.Wait()
}

func TestPredictArtifactDefaultsUnknownFeature(t *testing.T) {
	art := trainedArtifact(t, []string{"discount", "store"})
	assert.Equal(t, []string{"store"}, art.Unresolved(FieldNames()))

	expected, err := art.PredictRows([][]float64{{0.1, 0}})
	require.Nil(t, err)

	r := New(art).Router()
	code, res := do(t, r, http.MethodPost, "/predict", validBody)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, res.Error)
	if assert.NotNil(t, res.Prediction) {
		assert.InDelta(t, expected[0], *res.Prediction, 1e-9)
	}
}

func TestFieldNames(t *testing.T) {
	names := FieldNames()
	assert.Len(t, names, 21)
	assert.Contains(t, names, "dow")
	assert.Contains(t, names, "sales_roll_mean_7")
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "127.0.0.1:0", New(&fakePredictor{}).Router())
	}()
	cancel()

	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

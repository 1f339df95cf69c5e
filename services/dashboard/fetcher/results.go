package fetcher

import (
	"errors"
	"fmt"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// toParseResult maps the value returned by the Prometheus API client onto a parse result. Matrix, vector
// and scalar values are supported, an empty result is NoData and every error is an APIError.
func toParseResult(value model.Value, err error) common.ParseResult {
	if err != nil {
		return apiError(err)
	}

	var series []common.Series
	switch v := value.(type) {
	case model.Matrix:
		series = fromMatrix(v)
	case model.Vector:
		series = fromVector(v)
	case *model.Scalar:
		series = fromScalar(v)
	case nil:
		return apiError(errUnsupportedResultType("none"))
	default:
		return apiError(errUnsupportedResultType(value.Type().String()))
	}

	if len(series) == 0 {
		return common.NoData{}
	}

	return common.Success{Series: series}
}

func fromMatrix(matrix model.Matrix) []common.Series {
	series := make([]common.Series, 0, len(matrix))
	for _, stream := range matrix {
		if stream == nil {
			continue
		}

		series = append(series, common.Series{
			Labels:  labelsOf(stream.Metric),
			Samples: append(make([]model.SamplePair, 0, len(stream.Values)), stream.Values...),
		})
	}

	return series
}

func fromVector(vector model.Vector) []common.Series {
	series := make([]common.Series, 0, len(vector))
	for _, sample := range vector {
		if sample == nil {
			continue
		}

		series = append(series, common.Series{
			Labels: labelsOf(sample.Metric),
			Samples: []model.SamplePair{
				{Timestamp: sample.Timestamp, Value: sample.Value},
			},
		})
	}

	return series
}

func fromScalar(scalar *model.Scalar) []common.Series {
	if scalar == nil {
		return nil
	}

	return []common.Series{
		{
			Labels:  model.Metric{},
			Samples: []model.SamplePair{{Timestamp: scalar.Timestamp, Value: scalar.Value}},
		},
	}
}

func labelsOf(metric model.Metric) model.Metric {
	if metric == nil {
		return model.Metric{}
	}

	return metric.Clone()
}

// apiError keeps the Prometheus error type and message. Transport and decoding failures keep their own text.
func apiError(err error) common.APIError {
	var promErr *v1.Error
	if errors.As(err, &promErr) {
		return common.APIError{Reason: fmt.Sprintf("%s: %s", promErr.Type, promErr.Msg)}
	}

	return common.APIError{Reason: err.Error()}
}

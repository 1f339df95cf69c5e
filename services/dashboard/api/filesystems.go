package api

import (
	"context"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/prometheus/common/model"
	"golang.org/x/sync/errgroup"
)

type filesystemInfo struct {
	Mountpoint  string  `json:"mountpoint"`
	Device      string  `json:"device"`
	FSType      string  `json:"fstype"`
	UsedPercent float64 `json:"usedPercent"`
	SizeBytes   float64 `json:"sizeBytes"`
}

func (s *server) handleGetFilesystems(c *gin.Context) {
	name := c.Param("name")
	target, found := s.findTarget(name)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "node not found"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.queryTimeout)
	defer cancel()

	now := time.Now()
	kinds := []common.MetricKind{common.KindFilesystemUsage, common.KindFilesystemSize}
	results := make([]common.ParseResult, len(kinds))

	var group errgroup.Group
	for i, kind := range kinds {
		group.Go(func() error {
			results[i] = s.fetcher.FetchInstant(ctx, s.builder.Build(kind, target.InternalIP), now)
			return nil
		})
	}
	_ = group.Wait()

	for _, result := range results {
		apiErr, isErr := result.(common.APIError)
		if isErr {
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Reason})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"node":        target,
		"filesystems": mergeFilesystems(results[0], results[1]),
	})
}

func (s *server) findTarget(name string) (common.Target, bool) {
	for _, target := range s.inventory.Targets() {
		if target.Name == name {
			return target, true
		}
	}

	return common.Target{}, false
}

// mergeFilesystems joins the usage and size vectors on the mountpoint label, sorted by mountpoint
func mergeFilesystems(usage common.ParseResult, size common.ParseResult) []filesystemInfo {
	byMountpoint := make(map[string]*filesystemInfo)
	entry := func(labels model.Metric) *filesystemInfo {
		mountpoint := string(labels["mountpoint"])
		info, exists := byMountpoint[mountpoint]
		if !exists {
			info = &filesystemInfo{
				Mountpoint: mountpoint,
				Device:     string(labels["device"]),
				FSType:     string(labels["fstype"]),
			}
			byMountpoint[mountpoint] = info
		}

		return info
	}

	for _, series := range seriesOf(usage) {
		value, ok := lastValue(series)
		if ok {
			entry(series.Labels).UsedPercent = value
		}
	}
	for _, series := range seriesOf(size) {
		value, ok := lastValue(series)
		if ok {
			entry(series.Labels).SizeBytes = value
		}
	}

	out := make([]filesystemInfo, 0, len(byMountpoint))
	for _, info := range byMountpoint {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Mountpoint < out[j].Mountpoint
	})

	return out
}

func seriesOf(result common.ParseResult) []common.Series {
	success, ok := result.(common.Success)
	if !ok {
		return nil
	}

	return success.Series
}

func lastValue(series common.Series) (float64, bool) {
	if len(series.Samples) == 0 {
		return 0, false
	}

	value := float64(series.Samples[len(series.Samples)-1].Value)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}

	return value, true
}

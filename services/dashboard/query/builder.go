package query

import (
	"fmt"
	"net"
	"strconv"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
)

// DefaultNodeExporterPort is the port node-exporter listens on
const DefaultNodeExporterPort = 9100

const (
	cpuTemplate             = `100 - (avg by (instance) (irate(node_cpu_seconds_total{mode="idle",instance="%[1]s"}[5m])) * 100)`
	memoryTemplate          = `sum(100 - ((node_memory_MemAvailable_bytes{instance="%[1]s"} * 100) / node_memory_MemTotal_bytes{instance="%[1]s"}))`
	loadTemplate            = `avg(node_load1{instance="%[1]s"}) / count(count(node_cpu_seconds_total{instance="%[1]s"}) by (cpu)) * 100`
	throughputReadTemplate  = `sum(sum(irate(node_disk_read_bytes_total{instance="%[1]s"}[1m])) by (instance, device) * 0.000001) by (instance)`
	throughputWriteTemplate = `sum(sum(irate(node_disk_written_bytes_total{instance="%[1]s"}[1m])) by (instance, device) * 0.000001) by (instance)`
	filesystemSelector      = `instance="%[1]s",job=~"node-exporter",device!~"rootfs|shm|tmpfs",fstype!="iso9660"`
	filesystemUsageTemplate = `(1 - node_filesystem_avail_bytes{` + filesystemSelector + `} / node_filesystem_size_bytes{` + filesystemSelector + `}) * 100`
	filesystemSizeTemplate  = `node_filesystem_size_bytes{` + filesystemSelector + `}`
)

var templates = map[common.MetricKind]string{
	common.KindCPU:             cpuTemplate,
	common.KindMemory:          memoryTemplate,
	common.KindLoad:            loadTemplate,
	common.KindThroughputRead:  throughputReadTemplate,
	common.KindThroughputWrite: throughputWriteTemplate,
	common.KindFilesystemUsage: filesystemUsageTemplate,
	common.KindFilesystemSize:  filesystemSizeTemplate,
}

var defaultBuilder = NewBuilder(DefaultNodeExporterPort)

// Builder renders PromQL expressions filtered on the node-exporter instance of a target
type Builder struct {
	port string
}

// NewBuilder creates a builder for the provided node-exporter port. A 0 port means the default one.
func NewBuilder(port uint32) *Builder {
	if port == 0 {
		port = DefaultNodeExporterPort
	}

	return &Builder{
		port: strconv.FormatUint(uint64(port), 10),
	}
}

// Build renders the query for the metric kind using the default node-exporter port
func Build(kind common.MetricKind, address string) string {
	return defaultBuilder.Build(kind, address)
}

// Build renders the query of the metric kind for the provided address. Unknown kinds render an empty string.
func (b *Builder) Build(kind common.MetricKind, address string) string {
	template, found := templates[kind]
	if !found {
		return ""
	}

	return fmt.Sprintf(template, b.Instance(address))
}

// Instance returns the value of the instance label of the address
func (b *Builder) Instance(address string) string {
	return net.JoinHostPort(address, b.port)
}

// NewQuery creates a fresh query of the metric kind for the target
func (b *Builder) NewQuery(kind common.MetricKind, target common.Target) common.MetricQuery {
	return common.MetricQuery{
		Kind:   kind,
		Target: target,
		Expr:   b.Build(kind, target.InternalIP),
	}
}

// NewQueries creates the queries of a metric kind, index-aligned with the targets
func (b *Builder) NewQueries(kind common.MetricKind, targets []common.Target) []common.MetricQuery {
	queries := make([]common.MetricQuery, 0, len(targets))
	for _, target := range targets {
		queries = append(queries, b.NewQuery(kind, target))
	}

	return queries
}

// IsInterfaceNil returns true if the value under the interface is nil
func (b *Builder) IsInterfaceNil() bool {
	return b == nil
}

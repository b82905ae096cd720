package estimate

import (
	"testing"

	"mysql-db-export/internal/tables"

	"github.com/stretchr/testify/assert"
)

func testEstimator(available int64) *Estimator {
	checker := &DiskChecker{Enabled: true, SafetyMargin: 1.2, MinimumFreeMB: 0, Stat: fixedStat(available)}
	return &Estimator{Checker: checker, ExportRatio: 0.7, CompressionRatio: 0.2, OutputPath: "/tmp"}
}

func TestEstimateSkipsStructureOnlyTables(t *testing.T) {
	infos := []tables.TableInfo{
		{Name: "users", Rows: 10, DataBytes: 1000, IndexBytes: 200},
		{Name: "logs", Rows: 5000, DataBytes: 90000, IndexBytes: 10000, StructureOnly: true},
		{Name: "active_users", IsView: true, StructureOnly: true},
	}

	est := testEstimator(10*mib).Estimate(infos, true)

	assert.Equal(t, 3, est.TableCount)
	assert.Equal(t, int64(10), est.RowCount)
	assert.Equal(t, int64(1000), est.DataBytes)
	assert.Equal(t, int64(200), est.IndexBytes)
	assert.Equal(t, int64(1200), est.TotalBytes)
	assert.Equal(t, int64(700), est.ExportBytes)
	assert.Equal(t, int64(140), est.CompressedBytes)
	assert.True(t, est.DiskSpace.Sufficient)
	assert.Equal(t, int64(140), est.DiskSpace.EstimatedSize)
}

func TestEstimateWithoutCompression(t *testing.T) {
	infos := []tables.TableInfo{{Name: "orders", DataBytes: 10000}}

	est := testEstimator(10*mib).Estimate(infos, false)

	assert.Equal(t, int64(7000), est.ExportBytes)
	assert.Equal(t, est.ExportBytes, est.CompressedBytes)
	assert.Equal(t, int64(7000), est.DiskSpace.EstimatedSize)
	assert.Zero(t, est.SavingsRatio())
}

func TestEstimateAllStructureOnlyIsZero(t *testing.T) {
	infos := []tables.TableInfo{
		{Name: "a", DataBytes: 5000, StructureOnly: true},
		{Name: "b", DataBytes: 7000, StructureOnly: true},
	}

	est := testEstimator(10*mib).Estimate(infos, true)

	assert.Zero(t, est.ExportBytes)
	assert.Zero(t, est.CompressedBytes)
	assert.Equal(t, 2, est.TableCount)
}

func TestEstimateRunsDiskCheck(t *testing.T) {
	infos := []tables.TableInfo{{Name: "big", DataBytes: 100 * mib}}

	est := testEstimator(mib).Estimate(infos, true)

	assert.False(t, est.DiskSpace.Sufficient)
	assert.Equal(t, "/tmp", est.DiskSpace.Path)
	assert.NotEmpty(t, est.DiskSpace.Warning)
}

func TestEstimatorSizes(t *testing.T) {
	e := testEstimator(0)

	assert.Equal(t, int64(7), e.ExportSize(10))
	assert.Equal(t, int64(2), e.CompressedSize(10))
	assert.Equal(t, int64(700), e.TableSize(tables.TableInfo{DataBytes: 1000, IndexBytes: 5000}))
	assert.Zero(t, e.TableSize(tables.TableInfo{DataBytes: 1000, StructureOnly: true}))
}

func TestEstimatorDefaultRatios(t *testing.T) {
	e := NewEstimator(&DiskChecker{}, "/tmp")
	assert.Equal(t, DefaultExportRatio, e.ExportRatio)
	assert.Equal(t, DefaultCompressionRatio, e.CompressionRatio)

	zero := &Estimator{}
	assert.Equal(t, int64(700), zero.ExportSize(1000))
	assert.Equal(t, int64(200), zero.CompressedSize(1000))
}

func TestSizeEstimateHumanHelpers(t *testing.T) {
	est := SizeEstimate{TotalBytes: 1536, ExportBytes: 1000, CompressedBytes: 200}

	assert.Equal(t, "1.5 KB", est.HumanTotal())
	assert.Equal(t, "1000 B", est.HumanExport())
	assert.Equal(t, "200 B", est.HumanCompressed())
	assert.Equal(t, 0.8, est.SavingsRatio())
}

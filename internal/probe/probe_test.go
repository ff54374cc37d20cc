package probe

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"covidsql/adapters/excel"
	"covidsql/internal"
	"covidsql/internal/config"
	"covidsql/internal/errors"
	"covidsql/internal/frame"
	"covidsql/ports"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedRuntime = Runtime{
	Executable: "/opt/covidsql/bin/smoke",
	Version:    "go1.24.5 (gc, linux/amd64)",
}

func gotaBuild() (*debug.BuildInfo, bool) {
	return &debug.BuildInfo{Deps: []*debug.Module{
		{Path: frame.GotaModule, Version: "v0.12.0"},
	}}, true
}

func csvRegistry() *frame.Registry {
	r := frame.NewRegistry(frame.WithBuildInfo(gotaBuild))
	r.Register(".csv", excel.CSVFormat{})
	return r
}

func testConfig(root string) *config.Config {
	return &config.Config{
		Data: config.DataConfig{
			Root:  root,
			Files: append([]string(nil), config.DefaultFiles...),
			Sheet: "Sheet1",
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func run(t *testing.T, cfg *config.Config, opts ...Option) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithRuntime(fixedRuntime), WithRegistry(csvRegistry())}, opts...)
	err := New(cfg, &out, opts...).Run(context.Background())
	return out.String(), err
}

func TestRunAllFilesAbsent(t *testing.T) {
	out, err := run(t, testConfig(t.TempDir()))
	require.NoError(t, err)

	expected := strings.Join([]string{
		"Go executable: /opt/covidsql/bin/smoke",
		"Go version: go1.24.5 (gc, linux/amd64)",
		"gota version: v0.12.0",
		"country_wise_latest.csv not found in the repository root.",
		"covid_19_clean_complete.csv not found in the repository root.",
		"day_wise.csv not found in the repository root.",
		"",
		"Smoke test completed successfully.",
		"",
	}, "\n")
	assert.Equal(t, expected, out)
	assert.NotContains(t, out, "Reading first")
}

func TestRunPreviewGolden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "country_wise_latest.csv",
		"Country/Region,Confirmed,Deaths,Recovered\n"+
			"Afghanistan,36263,1269,25198\n"+
			"Albania,4880,144,2745\n"+
			"Algeria,27973,1163,18837\n"+
			"Andorra,907,52,803\n")
	writeFile(t, root, "day_wise.csv",
		"Date,Confirmed,Deaths\n"+
			"2020-01-22,555,17\n"+
			"2020-01-23,654,18\n")

	out, err := run(t, testConfig(root))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "preview", []byte(out))
}

func TestRunPreviewsOnlyFirstThreeRows(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "day_wise.csv", "a,b\n1,2\n3,4\n5,6\n7,8\n")

	out, err := run(t, testConfig(root))
	require.NoError(t, err)

	assert.Contains(t, out, "\nReading first 3 rows of day_wise.csv:\na b\n1 2\n3 4\n5 6\n")
	assert.NotContains(t, out, "7 8")
}

func TestRunTraceLogsColumnTypes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "day_wise.csv", "a,b\n1,2.5\n")

	var logs bytes.Buffer
	out, err := run(t, testConfig(root), WithLogger(internal.NewLogger(internal.LogLevelTrace, &logs)))
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "[TRACE]")
	assert.Contains(t, logs.String(), "day_wise.csv columns [a b] typed [int float]")
	assert.NotContains(t, out, "[TRACE]")
}

func TestRunMissingLibraryIsFatal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "day_wise.csv", "a,b\n1,2\n")

	withoutGota := frame.NewRegistry(frame.WithBuildInfo(func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Deps: []*debug.Module{{Path: "github.com/xuri/excelize/v2", Version: "v2.10.0"}}}, true
	}))
	withoutGota.Register(".csv", excel.CSVFormat{})

	out, err := run(t, testConfig(root), WithRegistry(withoutGota))
	require.Error(t, err)
	assert.Equal(t, errors.CodeDependencyMissing, errors.GetCode(err))

	assert.Contains(t, out, "Failed to import gota: gota is not available: module github.com/go-gota/gota in build not found")
	assert.NotContains(t, out, "gota version:")
	assert.NotContains(t, out, "not found in the repository root")
	assert.NotContains(t, out, "Reading first")
	assert.NotContains(t, out, "Smoke test completed successfully.")
}

func TestRunMissingFormatIsFatal(t *testing.T) {
	out, err := run(t, testConfig(t.TempDir()), WithRegistry(frame.NewRegistry(frame.WithBuildInfo(gotaBuild))))
	require.Error(t, err)
	assert.Equal(t, errors.CodeDependencyMissing, errors.GetCode(err))
	assert.Contains(t, out, `Failed to import gota: frame format ".csv" is not available`)
	assert.NotContains(t, out, "country_wise_latest.csv")
}

func TestRunReportsVersionBeforeFiles(t *testing.T) {
	out, err := run(t, testConfig(t.TempDir()))
	require.NoError(t, err)

	version := strings.Index(out, "gota version: ")
	first := strings.Index(out, "country_wise_latest.csv")
	require.GreaterOrEqual(t, version, 0)
	assert.Less(t, version, first)
}

func TestRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "country_wise_latest.csv", "a,b\n1,2\n3,4\n5,6\n7,8\n")
	cfg := testConfig(root)

	first, err := run(t, cfg)
	require.NoError(t, err)
	second, err := run(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunUsesWorkingDirectoryByDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "covid_19_clean_complete.csv", "Province/State,Country/Region\n,Afghanistan\n")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	out, err := run(t, testConfig(""))
	require.NoError(t, err)

	assert.Contains(t, out, "\nReading first 3 rows of covid_19_clean_complete.csv:\nProvince/State Country/Region\n           NaN    Afghanistan\n")
	assert.Contains(t, out, "day_wise.csv not found in the repository root.")
}

func TestRunUnreadableFileIsReturned(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "country_wise_latest.csv", "a,b\n1,2,3\n")

	out, err := run(t, testConfig(root))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "preview of country_wise_latest.csv failed")
	assert.NotContains(t, out, "covid_19_clean_complete.csv")
}

func TestRunRequiresFormatsOfConfiguredFiles(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Data.Files = []string{"day_wise.csv", "summary.xlsx"}

	out, err := run(t, cfg)
	require.Error(t, err)
	assert.Contains(t, out, `frame format ".xlsx" is not available`)
}

type MockDatabaseProbe struct {
	mock.Mock
}

func (m *MockDatabaseProbe) ServerVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDatabaseProbe) ListTables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDatabaseProbe) Close() error {
	args := m.Called()
	return args.Error(0)
}

func databaseConfig(root string) *config.Config {
	cfg := testConfig(root)
	cfg.Database = config.DatabaseConfig{URL: "postgres://localhost/covid", Timeout: 5 * time.Second}
	return cfg
}

func TestRunDatabaseCheck(t *testing.T) {
	db := &MockDatabaseProbe{}
	db.On("ServerVersion", mock.Anything).Return("16.2", nil)
	db.On("ListTables", mock.Anything).Return([]string{"Country_Wise_Latest", "day_wise"}, nil)
	db.On("Close").Return(nil)

	var gotURL string
	opener := func(ctx context.Context, url string) (ports.DatabaseProbe, error) {
		gotURL = url
		return db, nil
	}

	out, err := run(t, databaseConfig(t.TempDir()), WithDatabaseOpener(opener))
	require.NoError(t, err)
	db.AssertExpectations(t)

	assert.Equal(t, "postgres://localhost/covid", gotURL)
	assert.Contains(t, out, strings.Join([]string{
		"",
		"Database server: 16.2",
		"table country_wise_latest: present",
		"table covid_19_clean_complete not found in the database.",
		"table day_wise: present",
		"",
		"Smoke test completed successfully.",
		"",
	}, "\n"))
}

func TestRunDatabaseFailureIsNotFatal(t *testing.T) {
	opener := func(ctx context.Context, url string) (ports.DatabaseProbe, error) {
		return nil, errors.DatabaseError("failed to connect to database", stderrors.New("connection refused"))
	}

	out, err := run(t, databaseConfig(t.TempDir()), WithDatabaseOpener(opener))
	require.NoError(t, err)

	assert.Contains(t, out, "\nDatabase check failed: failed to connect to database: connection refused\n")
	assert.True(t, strings.HasSuffix(out, "Smoke test completed successfully.\n"))
}

func TestRunDatabaseQueryFailureClosesConnection(t *testing.T) {
	db := &MockDatabaseProbe{}
	db.On("ServerVersion", mock.Anything).Return("", errors.DatabaseError("failed to read server version", stderrors.New("timeout")))
	db.On("Close").Return(nil)

	opener := func(ctx context.Context, url string) (ports.DatabaseProbe, error) {
		return db, nil
	}

	out, err := run(t, databaseConfig(t.TempDir()), WithDatabaseOpener(opener))
	require.NoError(t, err)
	db.AssertExpectations(t)
	db.AssertNotCalled(t, "ListTables", mock.Anything)
	assert.Contains(t, out, "Database check failed: failed to read server version: timeout")
}

func TestRunSkipsDatabaseWithoutURL(t *testing.T) {
	called := false
	opener := func(ctx context.Context, url string) (ports.DatabaseProbe, error) {
		called = true
		return nil, nil
	}

	out, err := run(t, testConfig(t.TempDir()), WithDatabaseOpener(opener))
	require.NoError(t, err)
	assert.False(t, called)
	assert.NotContains(t, out, "Database")
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "day_wise", TableName("day_wise.csv"))
	assert.Equal(t, "country_wise_latest", TableName(filepath.Join("data", "Country_Wise_Latest.CSV")))
	assert.Equal(t, "summary", TableName("summary"))
}

func TestCurrentRuntime(t *testing.T) {
	rt := CurrentRuntime()
	assert.True(t, filepath.IsAbs(rt.Executable))
	assert.True(t, strings.HasPrefix(rt.Version, "go") || strings.HasPrefix(rt.Version, "devel"))
}

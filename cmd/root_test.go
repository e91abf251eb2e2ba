package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/sells-group/impact-engine/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"calculate", "serve", "worker", "recalculate", "migrate", "seed", "export"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "impact-engine", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCalculateCommand_Flags(t *testing.T) {
	for _, name := range []string{"product", "org", "allocations", "eol", "sensitivity"} {
		assert.NotNil(t, calculateCmd.Flags().Lookup(name), "calculate should have --%s", name)
	}
	flag := calculateCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestWorkerCommands_Flags(t *testing.T) {
	flag := workerCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "4", flag.DefValue)

	require.NotNil(t, recalculateCmd.Flags().Lookup("product"))
	wait := recalculateCmd.Flags().Lookup("wait")
	require.NotNil(t, wait)
	assert.Equal(t, "false", wait.DefValue)
}

func TestAdminCommands_Flags(t *testing.T) {
	require.NotNil(t, seedCmd.Flags().Lookup("file"))
	require.NotNil(t, exportCmd.Flags().Lookup("product"))
	require.NotNil(t, exportCmd.Flags().Lookup("output"))
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := initTracing(config.TraceConfig{}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}

func TestInitTracing_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := initTracing(config.TraceConfig{Enabled: true, Exporter: "stdout"}, &buf)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "probe")
}

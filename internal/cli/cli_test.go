package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-page-translator/internal/config"
)

const testPage = `<html><head><title>Demo page</title></head><body>
<h1>Welcome to the demo</h1>
<p>This is a paragraph with enough text to translate.</p>
<img src="x.png" alt="scenic photo">
</body></html>`

func writeTestPage(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "input.html")
	output := filepath.Join(dir, "output.html")
	require.NoError(t, os.WriteFile(input, []byte(testPage), 0o644))
	return input, output
}

func TestRootCommand_MissingArgs(t *testing.T) {
	cmd := NewRootCommand("test", "none", "unknown")
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestRootCommand_DryRunPipeline(t *testing.T) {
	input, output := writeTestPage(t)

	cmd := NewRootCommand("test", "none", "unknown")
	cmd.SetArgs([]string{input, output, "--dry-run", "--no-cache"})

	require.NoError(t, cmd.Execute())

	rendered, err := os.ReadFile(output)
	require.NoError(t, err)

	// raw 提供商原样回显，结构和内容保持不变
	assert.Contains(t, string(rendered), "Welcome to the demo")
	assert.Contains(t, string(rendered), `alt="scenic photo"`)
	assert.Contains(t, string(rendered), "<h1>")
}

func TestRootCommand_RoutingSkipsCompletedPage(t *testing.T) {
	input, output := writeTestPage(t)
	dbPath := filepath.Join(t.TempDir(), "records.db")

	args := []string{
		input, output, "--dry-run", "--no-cache",
		"--routing-db", dbPath,
		"--url", "https://example.com/demo",
	}

	// 第一次运行完成处理并写入成功记录
	cmd := NewRootCommand("test", "none", "unknown")
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(output)
	require.NoError(t, err)
	require.NoError(t, os.Remove(output))

	// 第二次运行命中成功记录，直接跳过，不再生成输出
	cmd = NewRootCommand("test", "none", "unknown")
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	_, err = os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}

func TestApplyFlagOverrides(t *testing.T) {
	input, output := writeTestPage(t)

	cmd := NewRootCommand("test", "none", "unknown")
	cmd.SetArgs([]string{input, output, "--dry-run", "--no-cache",
		"--source", "en", "--target", "ja", "--concurrency", "2"})

	require.NoError(t, cmd.Execute())

	_, err := os.Stat(output)
	require.NoError(t, err)
}

func TestConfigInitCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "page-translator.yaml")

	cmd := NewRootCommand("test", "none", "unknown")
	cmd.SetArgs([]string{"config", "init", "-o", cfgPath})
	require.NoError(t, cmd.Execute())

	// 生成的配置文件要能被重新加载并通过校验
	cfg, err := config.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.SourceLang)
	assert.Equal(t, "zh", cfg.TargetLang)
	assert.True(t, cfg.Cache.Enabled)
}

func TestEllipsize(t *testing.T) {
	assert.Equal(t, "short", ellipsize("short", 10))
	assert.Equal(t, "0123456789...", ellipsize("0123456789abcdef", 10))
}

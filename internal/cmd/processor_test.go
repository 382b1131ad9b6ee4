package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/persodocs/internal/config"
	"github.com/allanpk716/persodocs/internal/domain"
	"github.com/allanpk716/persodocs/internal/processor"
	"github.com/allanpk716/persodocs/internal/testutil"
)

type workspace struct {
	dir      string
	template string
	data     string
	cfg      *config.Config
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()

	template := filepath.Join(dir, "letter.docx")
	doc := testutil.BuildDocx(t, testutil.Document(
		testutil.P("center", testutil.R("<w:b/>", "Dear {{name}}"))+
			testutil.P("", testutil.R("", "See you in {{cty}}")),
	))
	require.NoError(t, os.WriteFile(template, doc, 0644))

	data := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(data, []byte("name,city\nAnn,Oslo\nBob,Rome\n"), 0644))

	cfg := &config.Config{ProjectName: "test"}
	config.SetDefaultValues(cfg)
	cfg.Storage.Root = dir

	return &workspace{dir: dir, template: template, data: data, cfg: cfg}
}

func TestExecuteProcessing_Merge(t *testing.T) {
	ws := newWorkspace(t)
	output := filepath.Join(ws.dir, "out", "letters.zip")

	args := &CommandLineArgs{TemplateFile: "letter.docx", DataFile: ws.data, OutputFile: output}
	require.NoError(t, ValidateArgs(args))
	require.NoError(t, ExecuteProcessing(context.Background(), ws.cfg, args, &bytes.Buffer{}))

	reader, err := zip.OpenReader(output)
	require.NoError(t, err)
	defer reader.Close()

	var names []string
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Ann_personalized.docx", "Bob_personalized.docx"}, names)
}

func TestExecuteProcessing_MergeAbsoluteTemplate(t *testing.T) {
	ws := newWorkspace(t)
	ws.cfg.Storage.Root = filepath.Join(ws.dir, "unused")
	output := filepath.Join(ws.dir, "letters.zip")

	args := &CommandLineArgs{TemplateFile: ws.template, DataFile: ws.data, OutputFile: output}
	require.NoError(t, ValidateArgs(args))
	require.NoError(t, ExecuteProcessing(context.Background(), ws.cfg, args, &bytes.Buffer{}))

	_, err := os.Stat(output)
	assert.NoError(t, err)
}

func TestExecuteProcessing_MergeFailureLeavesNoOutput(t *testing.T) {
	ws := newWorkspace(t)
	ws.cfg.Merge.NameColumn = "student"
	output := filepath.Join(ws.dir, "letters.zip")

	args := &CommandLineArgs{TemplateFile: "letter.docx", DataFile: ws.data, OutputFile: output}
	err := ExecuteProcessing(context.Background(), ws.cfg, args, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, domain.IsMissingColumn(err))

	entries, err := os.ReadDir(ws.dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasSuffix(entry.Name(), ".zip"), entry.Name())
		assert.False(t, strings.HasPrefix(entry.Name(), ".tmp-"), entry.Name())
	}
}

func TestExecuteProcessing_Preview(t *testing.T) {
	ws := newWorkspace(t)
	output := filepath.Join(ws.dir, "preview.html")

	args := &CommandLineArgs{TemplateFile: "letter.docx", Preview: true, OutputFile: output}
	require.NoError(t, ValidateArgs(args))
	require.NoError(t, ExecuteProcessing(context.Background(), ws.cfg, args, &bytes.Buffer{}))

	page, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(page), `<p class="text-center"><span style="font-family:Arial;"><strong>Dear {{name}}</strong></span></p>`)
	assert.Contains(t, string(page), "<title>letter.docx</title>")
}

func TestExecuteProcessing_Inspect(t *testing.T) {
	ws := newWorkspace(t)

	var stdout bytes.Buffer
	args := &CommandLineArgs{TemplateFile: "letter.docx", Inspect: true, DataFile: ws.data}
	require.NoError(t, ValidateArgs(args))
	require.NoError(t, ExecuteProcessing(context.Background(), ws.cfg, args, &stdout))

	out := stdout.String()
	assert.Contains(t, out, "共有 2 个占位符")
	assert.Contains(t, out, "{{cty}} (是否为: city)")
}

func TestExecuteProcessing_SaveAndDelete(t *testing.T) {
	ws := newWorkspace(t)
	ws.cfg.Storage.Root = filepath.Join(ws.dir, "store")
	ctx := context.Background()

	save := &CommandLineArgs{SaveFile: ws.template, TemplateFile: "letters/letter.docx"}
	require.NoError(t, ValidateArgs(save))
	require.NoError(t, ExecuteProcessing(ctx, ws.cfg, save, &bytes.Buffer{}))

	_, err := os.Stat(filepath.Join(ws.cfg.Storage.Root, "letters", "letter.docx"))
	require.NoError(t, err)

	del := &CommandLineArgs{DeleteKey: "letters/letter.docx"}
	require.NoError(t, ValidateArgs(del))
	require.NoError(t, ExecuteProcessing(ctx, ws.cfg, del, &bytes.Buffer{}))

	err = ExecuteProcessing(ctx, ws.cfg, del, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestExecuteProcessing_SaveRejectsInvalidTemplate(t *testing.T) {
	ws := newWorkspace(t)
	bad := filepath.Join(ws.dir, "bad.docx")
	require.NoError(t, os.WriteFile(bad, []byte("not a document"), 0644))

	args := &CommandLineArgs{SaveFile: bad, TemplateFile: "bad-copy.docx"}
	err := ExecuteProcessing(context.Background(), ws.cfg, args, &bytes.Buffer{})

	var saveErr *domain.SaveError
	assert.ErrorAs(t, err, &saveErr)
}

func TestLoadConfig_Overrides(t *testing.T) {
	manager := config.NewConfigManager()

	cfg, err := LoadConfig(manager, &CommandLineArgs{NameColumn: "student", Workers: 8, Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "student", cfg.Merge.NameColumn)
	assert.Equal(t, 8, cfg.Processing.MaxConcurrentRows)
	assert.True(t, cfg.Processing.EnableDetailedLogging)

	_, err = LoadConfig(manager, &CommandLineArgs{Workers: 99})
	assert.Error(t, err)
}

func TestExecuteInitConfig(t *testing.T) {
	manager := config.NewConfigManager()
	dir := t.TempDir()

	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, ExecuteInitConfig(manager, "advanced", path))

			cfg, err := manager.LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, "suffix", cfg.Merge.DuplicateNamePolicy)
			assert.Equal(t, "all", cfg.Merge.Scope)
			assert.Equal(t, 4, cfg.Processing.MaxConcurrentRows)
			assert.NoError(t, manager.ValidateConfig(cfg))
		})
	}

	basic := filepath.Join(dir, "basic.json")
	require.NoError(t, ExecuteInitConfig(manager, "basic", basic))
	cfg, err := manager.LoadConfig(basic)
	require.NoError(t, err)
	assert.Equal(t, "示例项目", cfg.ProjectName)

	unknown := filepath.Join(dir, "unknown.json")
	assert.Error(t, ExecuteInitConfig(manager, "huge", unknown))
	_, err = os.Stat(unknown)
	assert.True(t, os.IsNotExist(err))
}

func TestMergeOptions(t *testing.T) {
	cfg := &config.Config{ProjectName: "test"}
	config.SetDefaultValues(cfg)
	cfg.Merge.Scope = "all"

	opts := MergeOptions(cfg, "letters/letter.docx")
	assert.Equal(t, ".docx", opts.Extension)
	assert.Equal(t, "letter.docx", opts.TemplateName)
	assert.Equal(t, processor.ScopeAll, opts.Scope)
	assert.Equal(t, processor.MissingColumnAbort, opts.MissingColumnPolicy)
	assert.Equal(t, "_personalized", opts.OutputSuffix)
}

func TestRenderPreviewPage_EscapesTitle(t *testing.T) {
	page, err := RenderPreviewPage("<b>x</b>", []string{`<p class="">a</p>`})
	require.NoError(t, err)
	assert.Contains(t, string(page), "&lt;b&gt;x&lt;/b&gt;")
	assert.Contains(t, string(page), `<p class="">a</p>`)
}

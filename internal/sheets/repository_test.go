package sheets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"howett.net/plist"

	"keyly/internal/testutil"
)

func stubAppID(path string) string {
	return "id:" + filepath.Base(path)
}

func TestParseDocumentGrammar(t *testing.T) {
	input := `# Sheet Name: Editor
# App: /Applications/Editor.app
# Hide Default: Yes
# a plain comment
# Note: not a directive

CMD+N   New File
K Do Something
[Edit]
> Text editing
CMD+C   Copy
# Group: Clipboard - Copy and paste helpers
CMD+V   Paste
[History]
CMD+Z   Undo
CMD+SHIFT+Z
# Group:
[]
CTRL+A  Select All
`
	doc := parseDocument(strings.NewReader(input), "editor.keyly", modeSheet)

	if doc.name != "Editor" || doc.appPath != "/Applications/Editor.app" || !doc.hideDefault {
		t.Fatalf("header = %q %q %v", doc.name, doc.appPath, doc.hideDefault)
	}

	type row struct{ category, group, shortcut, action string }
	want := []row{
		{DefaultCategory, "", "⌘N", "New File"},
		{"Edit", "", "⌘C", "Copy"},
		{"Edit", "Clipboard", "⌘V", "Paste"},
		{"History", "Clipboard", "⌘Z", "Undo"},
		{DefaultCategory, "Clipboard", "⌃A", "Select All"},
	}
	if len(doc.entries) != len(want) {
		t.Fatalf("entries = %d, want %d: %+v", len(doc.entries), len(want), doc.entries)
	}
	for i, w := range want {
		e := doc.entries[i]
		group, _ := e.Group()
		got := row{e.Category(), group, e.Shortcut(), e.Action()}
		if got != w {
			t.Fatalf("entry %d = %+v, want %+v", i, got, w)
		}
	}

	if doc.categoryDescriptions["Edit"] != "Text editing" {
		t.Fatalf("category descriptions = %v", doc.categoryDescriptions)
	}
	if doc.groupDescriptions["Clipboard"] != "Copy and paste helpers" {
		t.Fatalf("group descriptions = %v", doc.groupDescriptions)
	}

	// "CMD+SHIFT+Z" without action and the blank group directive.
	if len(doc.warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", doc.warnings)
	}
}

func TestParseDocumentLineWithoutModifier(t *testing.T) {
	doc := parseDocument(strings.NewReader("K Do Something\n"), "x.keyly", modeSheet)
	if len(doc.entries) != 0 {
		t.Fatalf("entries = %+v, want none", doc.entries)
	}
	if len(doc.warnings) != 0 {
		t.Fatalf("warnings = %v, want none", doc.warnings)
	}
}

func TestParseBoolish(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1", "yes", "On"} {
		if !parseBoolish(v) {
			t.Fatalf("parseBoolish(%q) = false", v)
		}
	}
	for _, v := range []string{"false", "0", "no", "off", "", "maybe"} {
		if parseBoolish(v) {
			t.Fatalf("parseBoolish(%q) = true", v)
		}
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, GlobalFileName, `# App: /ignored
CMD+SHIFT+P  Command Palette
[Window]
CTRL+CMD+F   Full Screen
`)
	testutil.WriteFile(t, dir, "b-second.keyly", "# App: /Applications/Editor.app\nCMD+B Bold\n")
	testutil.WriteFile(t, dir, "a-first.keyly", "# App: /Applications/Editor.app\n# Sheet Name: First\nCMD+A First\n")
	testutil.WriteFile(t, dir, "no-app.keyly", "CMD+X Cut\n")
	testutil.WriteFile(t, dir, "notes.txt", "CMD+Y Ignored\n")
	if err := os.Mkdir(filepath.Join(dir, "nested.keyly"), 0o755); err != nil {
		t.Fatal(err)
	}

	lib := (&Repository{AppID: stubAppID}).LoadAll(dir)

	if len(lib.Sheets) != 2 {
		t.Fatalf("sheets = %d, want 2", len(lib.Sheets))
	}
	if lib.Sheets[0].Name != "First" || lib.Sheets[1].Name != "b-second" {
		t.Fatalf("sheet order = %q, %q", lib.Sheets[0].Name, lib.Sheets[1].Name)
	}
	if lib.Sheets[0].AppID != "id:Editor.app" {
		t.Fatalf("AppID = %q", lib.Sheets[0].AppID)
	}
	if lib.Sheets[0].ID == lib.Sheets[1].ID {
		t.Fatal("sheet IDs should be unique")
	}

	if len(lib.Global.Entries) != 2 {
		t.Fatalf("global entries = %+v", lib.Global.Entries)
	}
	if got := lib.Global.Entries[0].Category(); got != DefaultGlobalCategory {
		t.Fatalf("global default category = %q", got)
	}
	if got := lib.Global.Entries[1].Category(); got != "Window" {
		t.Fatalf("global second category = %q", got)
	}

	var sawNoApp, sawGlobalApp bool
	for _, w := range lib.Warnings {
		if strings.Contains(w.Message, "no App directive") {
			sawNoApp = true
		}
		if strings.Contains(w.Message, "App directive is not allowed") {
			sawGlobalApp = true
		}
	}
	if !sawNoApp || !sawGlobalApp {
		t.Fatalf("warnings = %v", lib.Warnings)
	}

	matches := lib.SheetsFor("id:Editor.app")
	if len(matches) != 2 {
		t.Fatalf("SheetsFor(id) = %d sheets, want 2", len(matches))
	}
	if len(lib.SheetsFor("/Applications/Editor.app/")) != 2 {
		t.Fatal("SheetsFor(path) should match the cleaned app path")
	}
	if len(lib.SheetsFor("com.other")) != 0 {
		t.Fatal("SheetsFor(other) should be empty")
	}
}

func TestLoadAllMissingDirectory(t *testing.T) {
	lib := NewRepository().LoadAll(filepath.Join(t.TempDir(), "absent"))
	if len(lib.Sheets) != 0 || len(lib.Global.Entries) != 0 || len(lib.Warnings) != 0 {
		t.Fatalf("LoadAll(missing) = %+v, want empty library", lib)
	}
}

func TestLoadAllSkipsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "big.keyly", "# App: /x\n"+strings.Repeat("#", maxSheetFileBytes+1))
	testutil.WriteFile(t, dir, "ok.keyly", "# App: /y\nCMD+K Kill\n")

	lib := (&Repository{AppID: stubAppID}).LoadAll(dir)
	if len(lib.Sheets) != 1 || lib.Sheets[0].AppPath != "/y" {
		t.Fatalf("sheets = %+v", lib.Sheets)
	}
	if len(lib.Warnings) != 1 || !strings.Contains(lib.Warnings[0].Message, "exceeds") {
		t.Fatalf("warnings = %v", lib.Warnings)
	}
}

func TestBundleID(t *testing.T) {
	dir := t.TempDir()
	app := filepath.Join(dir, "Safari.app")
	testutil.WriteFile(t, app, "Contents/Info.plist", `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleDocumentTypes</key>
	<array>
		<dict>
			<key>CFBundleIdentifier</key>
			<string>nested.should.not.match</string>
		</dict>
	</array>
	<key>CFBundleIdentifier</key>
	<string>com.apple.Safari</string>
</dict>
</plist>
`)
	if got := BundleID(app); got != "com.apple.Safari" {
		t.Fatalf("BundleID() = %q, want com.apple.Safari", got)
	}

	missing := filepath.Join(dir, "Missing.app") + string(filepath.Separator)
	if got := BundleID(missing); got != filepath.Clean(missing) {
		t.Fatalf("BundleID(missing) = %q, want cleaned path", got)
	}
	if got := BundleID("  "); got != "" {
		t.Fatalf("BundleID(blank) = %q", got)
	}
}

func TestBundleIDBinaryPlist(t *testing.T) {
	data, err := plist.Marshal(map[string]any{
		"CFBundleIdentifier": "com.example.foo",
		"CFBundleName":       "Foo",
	}, plist.BinaryFormat)
	if err != nil {
		t.Fatalf("plist.Marshal() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "bplist00") {
		t.Fatalf("encoded plist is not binary: %q", data[:8])
	}

	root := t.TempDir()
	app := filepath.Join(root, "Applications", "Foo.app")
	testutil.WriteFile(t, app, "Contents/Info.plist", string(data))
	if got := BundleID(app); got != "com.example.foo" {
		t.Fatalf("BundleID() = %q, want com.example.foo", got)
	}

	cfg := t.TempDir()
	testutil.WriteFile(t, cfg, "foo.keyly", "# App: "+app+"\nCMD+N New\n")
	lib := NewRepository().LoadAll(cfg)
	if len(lib.Sheets) != 1 || !lib.Sheets[0].Matches("com.example.foo") {
		t.Fatalf("sheet should match the bundle identifier: %+v", lib.Sheets)
	}
}

func TestBundleIDCorruptPlistFallsBack(t *testing.T) {
	app := filepath.Join(t.TempDir(), "Broken.app")
	testutil.WriteFile(t, app, "Contents/Info.plist", "bplist00\x00garbage")
	if got := BundleID(app); got != filepath.Clean(app) {
		t.Fatalf("BundleID() = %q, want the app path", got)
	}
}

func TestParseExtracted(t *testing.T) {
	got := ParseExtracted([]ExtractedShortcut{
		{Category: "File", Action: "Save", RawShortcut: "cmd+s"},
		{Category: "", Action: "Help", RawShortcut: "shift+cmd+/"},
		{Category: "File", Action: "Print", RawShortcut: "P"},
		{Category: "File", Action: "", RawShortcut: "cmd+q"},
	})
	if len(got) != 2 {
		t.Fatalf("entries = %+v, want 2", got)
	}
	if got[1].Category() != DefaultCategory || got[1].Shortcut() != "⇧⌘/" {
		t.Fatalf("second entry = %+v", got[1])
	}
}

func TestWriteExample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keyly")
	path, created, err := WriteExample(dir)
	if err != nil || !created {
		t.Fatalf("WriteExample() = %q, %v, %v", path, created, err)
	}

	lib := (&Repository{AppID: stubAppID}).LoadAll(dir)
	if len(lib.Sheets) != 1 || len(lib.Warnings) != 0 {
		t.Fatalf("example library = %+v", lib)
	}
	if n := len(lib.Sheets[0].Entries); n != 9 {
		t.Fatalf("example entries = %d, want 9", n)
	}

	if err := os.WriteFile(path, []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, created, err := WriteExample(dir); err != nil || created {
		t.Fatalf("second WriteExample() created=%v err=%v", created, err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "custom" {
		t.Fatal("WriteExample overwrote an existing file")
	}
}

func TestWriteExampleFailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	orig := writeTemp
	t.Cleanup(func() { writeTemp = orig })
	writeTemp = func(f *os.File, data string) error {
		if _, err := f.WriteString(data[:10]); err != nil {
			return err
		}
		return errors.New("disk full")
	}

	if _, created, err := WriteExample(dir); err == nil || created {
		t.Fatalf("WriteExample() created=%v err=%v, want failure", created, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed write left %d files behind", len(entries))
	}

	writeTemp = orig
	path, created, err := WriteExample(dir)
	if err != nil || !created {
		t.Fatalf("retry WriteExample() = %q, %v, %v", path, created, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != exampleSheet {
		t.Fatalf("retry wrote %d bytes, err %v", len(raw), err)
	}
}

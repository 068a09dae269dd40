package api

const (
	DefaultConfigFilename = "assetpipe.yaml"
	DefaultSourceDir      = "source"
	DefaultBuildDir       = "build"
	DefaultStartGroup     = "dev-build"
	DefaultPort           = 3000
	DefaultScriptTarget   = "es2015"
	DefaultScriptSuffix   = ".min"
	DefaultWebPQuality    = 90
	DefaultSassCompiler   = "sass"

	// StartTask is the built-in command that builds, serves and watches.
	// No step or group may use the name.
	StartTask = "start"

	StepTypeClean    = "clean"
	StepTypeCopy     = "copy"
	StepTypeStyles   = "styles"
	StepTypeScripts  = "scripts"
	StepTypeImages   = "images"
	StepTypeWebP     = "webp"
	StepTypeSprite   = "sprite"
	StepTypeHTML     = "html"
	StepTypeScaffold = "scaffold"
)

// Config is the assetpipe.yaml configuration format.
type Config struct {
	Source  string              `yaml:"source"`
	Build   string              `yaml:"build"`
	Context map[string]any      `yaml:"context"`
	Steps   []StepConfig        `yaml:"steps"`
	Groups  map[string][]string `yaml:"groups"`
	Watch   []WatchConfig       `yaml:"watch"`
	Serve   ServeConfig         `yaml:"serve"`

	// Set by the loader, not from YAML.
	FilePath string `yaml:"-"`
}

// StepConfig defines a single named step.
type StepConfig struct {
	Name     string          `yaml:"name"`
	Type     string          `yaml:"type"`
	Requires []string        `yaml:"requires,omitempty"`
	Clean    *CleanConfig    `yaml:"clean,omitempty"`
	Copy     *CopyConfig     `yaml:"copy,omitempty"`
	Styles   *StylesConfig   `yaml:"styles,omitempty"`
	Scripts  *ScriptsConfig  `yaml:"scripts,omitempty"`
	Images   *ImagesConfig   `yaml:"images,omitempty"`
	WebP     *WebPConfig     `yaml:"webp,omitempty"`
	Sprite   *SpriteConfig   `yaml:"sprite,omitempty"`
	HTML     *HTMLConfig     `yaml:"html,omitempty"`
	Scaffold *ScaffoldConfig `yaml:"scaffold,omitempty"`
}

// FileFilter defines include/exclude glob patterns, relative to the project directory.
type FileFilter struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// CleanConfig configures the clean step.
type CleanConfig struct {
	Dir string `yaml:"dir"`
}

// CopyConfig configures the copy step. An empty Base keeps paths relative
// to the static prefix of each include pattern.
type CopyConfig struct {
	Files FileFilter `yaml:"files"`
	Base  string     `yaml:"base"`
	Dest  string     `yaml:"dest"`
}

// StylesConfig configures the stylesheet step.
type StylesConfig struct {
	Entry     string   `yaml:"entry"`
	Dest      string   `yaml:"dest"`
	MinName   string   `yaml:"minName"`
	SourceMap bool     `yaml:"sourceMap"`
	Compiler  string   `yaml:"compiler"`
	Prefixer  []string `yaml:"prefixer"`
}

// ScriptsConfig configures the script step. With Bundle set the matched
// files are concatenated in listed order before transforming.
type ScriptsConfig struct {
	Files     FileFilter `yaml:"files"`
	Dest      string     `yaml:"dest"`
	Bundle    string     `yaml:"bundle"`
	Suffix    string     `yaml:"suffix"`
	Target    string     `yaml:"target"`
	Minify    *bool      `yaml:"minify,omitempty"` // default true
	SourceMap bool       `yaml:"sourceMap"`
}

// ImagesConfig configures in-place image optimization.
type ImagesConfig struct {
	Files FileFilter `yaml:"files"`
	Dest  string     `yaml:"dest"`
}

// WebPConfig configures WebP conversion.
type WebPConfig struct {
	Files   FileFilter `yaml:"files"`
	Dest    string     `yaml:"dest"`
	Quality int        `yaml:"quality"`
}

// SpriteConfig configures the SVG sprite step.
type SpriteConfig struct {
	Files  FileFilter `yaml:"files"`
	Output string     `yaml:"output"`
	Inline bool       `yaml:"inline"`
}

// HTMLConfig configures the markup step.
type HTMLConfig struct {
	Files  FileFilter `yaml:"files"`
	Dest   string     `yaml:"dest"`
	Render bool       `yaml:"render"`
}

// ScaffoldConfig configures the scaffold step.
type ScaffoldConfig struct {
	Dirs []string `yaml:"dirs"`
}

// WatchConfig binds a glob to the tasks re-run when a matching file changes.
type WatchConfig struct {
	Pattern string   `yaml:"pattern"`
	Tasks   []string `yaml:"tasks"`
	Reload  bool     `yaml:"reload"`
}

// ServeConfig configures the development server.
type ServeConfig struct {
	Root   string `yaml:"root"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	CORS   bool   `yaml:"cors"`
	Open   bool   `yaml:"open"`
	Before string `yaml:"before"`
}

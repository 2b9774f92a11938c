package hcl_adapter

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Layers       []*LayerBlock       `hcl:"layer,block"`
	Mappings     []*MappingBlock     `hcl:"mapping,block"`
	Platforms    []*PlatformBlock    `hcl:"platform,block"`
	Policies     []*PolicyBlock      `hcl:"policy,block"`
	Settings     []*SettingsBlock    `hcl:"settings,block"`
	Sources      []*AssetSourceBlock `hcl:"asset_source,block"`
	Dependencies []*DependencyBlock  `hcl:"dependency,block"`
}

// LayerBlock is the `layer` block. Exactly one is required across all files.
type LayerBlock struct {
	Runtime       string   `hcl:"runtime,optional"`
	StagingRoot   string   `hcl:"staging_root"`
	RuntimePrefix string   `hcl:"runtime_prefix,optional"`
	Interpreter   string   `hcl:"interpreter,optional"`
	SearchPaths   []string `hcl:"search_paths,optional"`
}

// MappingBlock adds a build-to-runtime prefix mapping.
type MappingBlock struct {
	BuildPrefix   string `hcl:"build_prefix"`
	RuntimePrefix string `hcl:"runtime_prefix"`
}

// PlatformBlock selects the target platform. A Linux tag must carry the libc
// suffix as CPython writes it into filenames: "cp312-x86_64-linux-gnu",
// not "cp312-x86_64-linux".
type PlatformBlock struct {
	Tag       string `hcl:"tag,optional"`
	ExtSuffix string `hcl:"ext_suffix,optional"`
	Detect    bool   `hcl:"detect,optional"`
}

// PolicyBlock decides which failures block the build. Omitted fail_on_*
// attributes follow `strict`, which defaults to true.
type PolicyBlock struct {
	Strict               *bool `hcl:"strict,optional"`
	FailOnImport         *bool `hcl:"fail_on_import,optional"`
	FailOnAsset          *bool `hcl:"fail_on_asset,optional"`
	FailOnNativeMismatch *bool `hcl:"fail_on_native,optional"`
}

// SettingsBlock holds tuning knobs; durations use Go syntax ("90s", "2m").
type SettingsBlock struct {
	Concurrency    *int     `hcl:"concurrency,optional"`
	ProbeTimeout   *string  `hcl:"probe_timeout,optional"`
	FetchTimeout   *string  `hcl:"fetch_timeout,optional"`
	FetchRetries   *int     `hcl:"fetch_retries,optional"`
	Backoff        *string  `hcl:"backoff,optional"`
	NativePatterns []string `hcl:"native_patterns,optional"`
}

// AssetSourceBlock is an `asset_source "name"` block.
type AssetSourceBlock struct {
	Name    string            `hcl:"name,label"`
	Type    string            `hcl:"type,optional"`
	BaseURL string            `hcl:"base_url,optional"`
	Paths   map[string]string `hcl:"paths,optional"`

	Endpoint string `hcl:"endpoint,optional"`
	Bucket   string `hcl:"bucket,optional"`
	Prefix   string `hcl:"prefix,optional"`
	Region   string `hcl:"region,optional"`
	UseSSL   *bool  `hcl:"use_ssl,optional"`
}

// DependencyBlock is a `dependency "name"` block.
type DependencyBlock struct {
	Name        string   `hcl:"name,label"`
	Module      string   `hcl:"module,optional"`
	Imports     []string `hcl:"imports,optional"`
	DataAssets  []string `hcl:"data_assets,optional"`
	Native      bool     `hcl:"native,optional"`
	AssetSource string   `hcl:"asset_source,optional"`
}

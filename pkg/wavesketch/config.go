package wavesketch

// Config bundles every parameter the facade needs across ingestion and
// query. It is built from functional Options over sane defaults,
// mirroring the teacher's Config/Option pattern.
type Config struct {
	DBPath          string
	PostgresDSN     string
	PermutationPath string
	PermutationSeed int64
	TempDir         string

	SampleRate        int
	WindowSize        int
	Overlap           int
	FingerprintLength int
	FrequencyBins     int
	StartFrequency    float64
	EndFrequency      float64
	TopWavelets       int
	LogBase           float64

	HashTables        int
	HashKeysPerTable  int
	ThresholdTables   int
	MaxSignatureCount int
	TopCandidates     int
	Alpha             float64

	Logger  Logger
	Storage Storage
}

// Option mutates a Config during NewService.
type Option func(*Config)

func WithDBPath(path string) Option         { return func(c *Config) { c.DBPath = path } }
func WithPostgresDSN(dsn string) Option     { return func(c *Config) { c.PostgresDSN = dsn } }
func WithPermutationPath(p string) Option   { return func(c *Config) { c.PermutationPath = p } }
func WithPermutationSeed(seed int64) Option { return func(c *Config) { c.PermutationSeed = seed } }
func WithTempDir(dir string) Option         { return func(c *Config) { c.TempDir = dir } }
func WithSampleRate(rate int) Option        { return func(c *Config) { c.SampleRate = rate } }
func WithLogger(log Logger) Option          { return func(c *Config) { c.Logger = log } }
func WithStorage(storage Storage) Option    { return func(c *Config) { c.Storage = storage } }
func WithHashLayout(l, b int) Option {
	return func(c *Config) { c.HashTables = l; c.HashKeysPerTable = b }
}
func WithThreshold(t int) Option { return func(c *Config) { c.ThresholdTables = t } }
func WithAlpha(a float64) Option { return func(c *Config) { c.Alpha = a } }

func defaultConfig() *Config {
	return &Config{
		DBPath:          "wavesketch.sqlite3",
		PermutationPath: "wavesketch.perm",
		TempDir:         "/tmp",

		SampleRate:        5512,
		WindowSize:        1024,
		Overlap:           256,
		FingerprintLength: 64,
		FrequencyBins:     64,
		StartFrequency:    20,
		EndFrequency:      2600,
		TopWavelets:       32,
		LogBase:           2,

		HashTables:        25,
		HashKeysPerTable:  4,
		ThresholdTables:   4,
		MaxSignatureCount: 5,
		TopCandidates:     200,
		Alpha:             0.4,
	}
}

func (c Config) fingerprintLen() int {
	return 2 * c.FingerprintLength * c.FingerprintLength
}

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "config.toml"

// MaxFramesInFlight is the number of frame slots the renderer cycles through.
const MaxFramesInFlight = 2

type WindowConfig struct {
	Title  string `toml:"title" yaml:"title"`
	Width  uint32 `toml:"width" yaml:"width"`
	Height uint32 `toml:"height" yaml:"height"`
}

type RendererConfig struct {
	VSync             bool       `toml:"vsync" yaml:"vsync"`
	Validation        bool       `toml:"validation" yaml:"validation"`
	ClearColor        [4]float32 `toml:"clear_color" yaml:"clear_color"`
	MaxFramesInFlight int        `toml:"max_frames_in_flight" yaml:"max_frames_in_flight"`
}

type EditorConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

type AssetsConfig struct {
	Root           string `toml:"root" yaml:"root"`
	Model          string `toml:"model" yaml:"model"`
	Texture        string `toml:"texture" yaml:"texture"`
	VertexShader   string `toml:"vertex_shader" yaml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader" yaml:"fragment_shader"`
	Watch          bool   `toml:"watch" yaml:"watch"`
}

type CameraConfig struct {
	FOV       float32    `toml:"fov" yaml:"fov"`
	Near      float32    `toml:"near" yaml:"near"`
	Far       float32    `toml:"far" yaml:"far"`
	Position  [3]float32 `toml:"position" yaml:"position"`
	PitchYaw  [2]float32 `toml:"pitch_yaw" yaml:"pitch_yaw"`
	MoveSpeed float32    `toml:"move_speed" yaml:"move_speed"`
	RotSpeed  float32    `toml:"rot_speed" yaml:"rot_speed"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Editor   EditorConfig   `toml:"editor" yaml:"editor"`
	Assets   AssetsConfig   `toml:"assets" yaml:"assets"`
	Camera   CameraConfig   `toml:"camera" yaml:"camera"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Ember Vulkan Engine",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			VSync:             false,
			Validation:        true,
			ClearColor:        [4]float32{0.0, 0.0, 0.2, 1.0},
			MaxFramesInFlight: MaxFramesInFlight,
		},
		Editor: EditorConfig{
			Enabled: true,
		},
		Assets: AssetsConfig{
			Root:           "assets",
			Model:          "models/viking_room.obj",
			Texture:        "textures/viking_room.png",
			VertexShader:   "shaders/shader.vert.spv",
			FragmentShader: "shaders/shader.frag.spv",
			Watch:          true,
		},
		Camera: CameraConfig{
			FOV:       45.0,
			Near:      0.1,
			Far:       100.0,
			Position:  [3]float32{0.0, 0.5, 2.5},
			PitchYaw:  [2]float32{-10.0, 0.0},
			MoveSpeed: 1.0,
			RotSpeed:  20.0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the file at path on top of the defaults. The format follows the
// extension: .yaml/.yml is YAML, anything else is TOML. A missing file is
// not an error, the defaults are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "decoding yaml config %s", path)
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "decoding toml config %s", path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Newf("window size must be non-zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.MaxFramesInFlight != MaxFramesInFlight {
		return errors.Newf("max_frames_in_flight is fixed at %d, got %d", MaxFramesInFlight, c.Renderer.MaxFramesInFlight)
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return errors.Newf("camera fov must be in (0, 180), got %f", c.Camera.FOV)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return errors.Newf("camera clip planes invalid: near=%f far=%f", c.Camera.Near, c.Camera.Far)
	}
	if c.Assets.VertexShader == "" || c.Assets.FragmentShader == "" {
		return errors.New("both vertex and fragment shader paths are required")
	}
	return nil
}

// AssetPath resolves a path relative to the asset root.
func (c *Config) AssetPath(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Assets.Root, rel)
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return os.WriteFile(path, data, 0o644)
}

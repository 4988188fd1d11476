package main

import (
	_ "embed" // Support for go:embed resources
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

//go:embed resources/defaultConfig.ini
var defaultConfig []byte

// Environment variables the mod loader hands its include paths over with.
const (
	envModPaths = "ORIGINSBASS_MODPATHS"
	envDataPack = "ORIGINSBASS_DATAPACK"
)

type Config struct {
	Def     string    `ini:"-"`
	IniFile *ini.File `ini:"-"`
	Sound   struct {
		SampleRate           int     `ini:"SampleRate"`
		BufferSize           int     `ini:"BufferSize"`
		ResampleQuality      int     `ini:"ResampleQuality"`
		Channels             int     `ini:"Channels"`
		SfxSlots             int     `ini:"SfxSlots"`
		GlobalVolume         float32 `ini:"GlobalVolume"`
		LegacyByteConversion bool    `ini:"LegacyByteConversion"`
		SoundFont            string  `ini:"SoundFont"`
	} `ini:"Sound"`
	Tempo struct {
		FastSpeed      float32 `ini:"FastSpeed"`
		FastSuffix     string  `ini:"FastSuffix"`
		FastDir        string  `ini:"FastDir"`
		StageSuffix    string  `ini:"StageSuffix"`
		StageSpeedStep float32 `ini:"StageSpeedStep"`
	} `ini:"Tempo"`
	Paths struct {
		DataPack string   `ini:"DataPack"`
		ModPaths []string `ini:"ModPaths" delim:","`
		MusicDir string   `ini:"MusicDir"`
		SoundDir string   `ini:"SoundDir"`
		LoopFile string   `ini:"LoopFile"`
	} `ini:"Paths"`
}

// Loads and parses the INI file into a Config struct. The embedded defaults
// are layered under def, which does not need to exist.
func loadConfig(def string) (*Config, error) {
	options := ini.LoadOptions{
		Insensitive:             false,
		IgnoreInlineComment:     false,
		SkipUnrecognizableLines: true,
		AllowShadows:            false,
	}
	var iniFile *ini.File
	var err error
	if fp := FileExist(def); len(fp) == 0 {
		iniFile, err = ini.LoadSources(options, defaultConfig)
	} else {
		iniFile, err = ini.LoadSources(options, defaultConfig, def)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %v", err)
	}
	c := Config{Def: def, IniFile: iniFile}
	if err := c.remap(); err != nil {
		return nil, err
	}
	c.normalize()
	return &c, nil
}

func (c *Config) remap() error {
	if err := c.IniFile.MapTo(c); err != nil {
		return fmt.Errorf("failed to map config: %v", err)
	}
	return nil
}

// setValue updates both the ini file and the mapped struct.
func (c *Config) setValue(section, key string, value interface{}) {
	var s string
	switch v := value.(type) {
	case []string:
		s = strings.Join(v, ",")
	default:
		s = fmt.Sprint(v)
	}
	c.IniFile.Section(section).Key(key).SetValue(s)
	c.remap()
}

// Normalize values
func (c *Config) normalize() {
	switch c.Sound.SampleRate {
	case 22050, 44100, 48000:
	default:
		c.setValue("Sound", "SampleRate", 44100)
	}
	if c.Sound.BufferSize < 64 {
		c.setValue("Sound", "BufferSize", audioOutLen)
	}
	if q := c.Sound.ResampleQuality; q < 1 || q > 64 {
		c.setValue("Sound", "ResampleQuality", MinI(MaxI(q, 1), 64))
	}
	if c.Sound.Channels < 1 {
		c.setValue("Sound", "Channels", 16)
	}
	if c.Sound.SfxSlots < 1 {
		c.setValue("Sound", "SfxSlots", 256)
	}
	if c.Sound.GlobalVolume < 0 {
		c.setValue("Sound", "GlobalVolume", 0)
	}
	if c.Tempo.FastSpeed <= minTempoSpeed {
		c.setValue("Tempo", "FastSpeed", 1.25)
	}
	mods := c.Paths.ModPaths[:0]
	for _, m := range c.Paths.ModPaths {
		if m = strings.TrimSpace(m); m != "" {
			mods = append(mods, m)
		}
	}
	c.Paths.ModPaths = mods
}

// applyEnv reads a .env file when present and lets the environment override
// the mod search paths and the data pack.
func (c *Config) applyEnv(envFile string) error {
	if FileExist(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to read %v: %v", envFile, err)
		}
	}
	if v, ok := os.LookupEnv(envModPaths); ok {
		c.setValue("Paths", "ModPaths", filepath.SplitList(v))
		c.normalize()
	}
	if v, ok := os.LookupEnv(envDataPack); ok && strings.TrimSpace(v) != "" {
		c.setValue("Paths", "DataPack", strings.TrimSpace(v))
	}
	return nil
}

func (c *Config) TempoConfig() TempoConfig {
	return TempoConfig{
		FastSpeed:      c.Tempo.FastSpeed,
		FastSuffix:     c.Tempo.FastSuffix,
		FastDir:        c.Tempo.FastDir,
		StageSuffix:    c.Tempo.StageSuffix,
		StageSpeedStep: c.Tempo.StageSpeedStep,
	}
}

func (c *Config) AudioOptions() AudioOptions {
	return AudioOptions{
		Channels:             c.Sound.Channels,
		SfxSlots:             c.Sound.SfxSlots,
		GlobalVolume:         c.Sound.GlobalVolume,
		LegacyByteConversion: c.Sound.LegacyByteConversion,
	}
}

// Save writes the current IniFile to disk, preserving comments and syntax.
func (c *Config) Save(file string) error {
	if c.IniFile == nil {
		return fmt.Errorf("iniFile is not initialized")
	}
	if dir := filepath.Dir(file); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	// Normalize all true/false to 1/0
	for _, section := range c.IniFile.Sections() {
		for _, key := range section.Keys() {
			if key.Value() == "true" {
				key.SetValue("1")
			} else if key.Value() == "false" {
				key.SetValue("0")
			}
		}
	}
	return c.IniFile.SaveTo(file)
}

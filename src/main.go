package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

var Version = "development"
var BuildTime = "" // Set automatically by the release build

// Checks if error is not null, if there is an error it displays a error dialogue box and crashes the program.
func chk(err error) {
	if err != nil {
		ShowErrorDialog(err.Error())
		panic(err)
	}
}

// Extended version of 'chk()'
func chkEX(err error, txt string, crash bool) bool {
	if err != nil {
		ShowErrorDialog(txt + err.Error())
		if crash {
			panic(Error(txt + err.Error()))
		}
		return true
	}
	return false
}

func createLog(p string) *os.File {
	f, err := os.Create(p)
	if err != nil {
		panic(err)
	}
	return f
}
func closeLog(f *os.File) {
	f.Close()
}

func main() {
	// Make save directories, if they don't exist
	os.Mkdir("save", os.ModeSticky|0755)
	os.Mkdir("save/logs", os.ModeSticky|0755)

	processCommandLine(os.Args[1:])

	// Default paths
	defaults := map[string]string{
		"-config": "save/config.ini",
		"-script": "script/main.lua",
		"-env":    ".env",
	}
	for k, v := range defaults {
		if p, ok := sys.cmdFlags[k]; !ok || p == "" || p == "true" {
			sys.cmdFlags[k] = v
		}
	}

	cfg, err := loadConfig(sys.cmdFlags["-config"])
	chk(err)
	chkEX(cfg.applyEnv(sys.cmdFlags["-env"]), "Environment overrides: ", false)
	if v, ok := sys.cmdFlags["-modpath"]; ok {
		cfg.setValue("Paths", "ModPaths", strings.Split(v, ","))
		cfg.normalize()
	}
	if v, ok := sys.cmdFlags["-datapack"]; ok && v != "true" {
		cfg.setValue("Paths", "DataPack", v)
	}
	if v, ok := sys.cmdFlags["-setvolume"]; ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.setValue("Sound", "GlobalVolume", f)
		}
	}
	if FileExist(sys.cmdFlags["-config"]) == "" {
		chkEX(cfg.Save(sys.cmdFlags["-config"]), "Failed to write default config: ", false)
	}
	sys.cfg = *cfg

	// Check if the main lua file exists.
	script := sys.cmdFlags["-script"]
	if ftemp, err1 := os.Open(script); err1 != nil {
		var err2 = Error(
			"Main lua file \"" + script + "\" error." +
				"\n" + err1.Error(),
		)
		ShowErrorDialog(err2.Error())
		panic(err2)
	} else {
		ftemp.Close()
	}

	sys.luaLState, err = sys.init()
	chk(err)
	defer sys.shutdown()

	if err := sys.luaLState.DoFile(script); err != nil {
		// Display error logs.
		errorLog := createLog("save/logs/OriginsBASS.log")
		defer closeLog(errorLog)

		// Write version and build time at the top
		fmt.Fprintf(errorLog, "Version: %s\nBuild Time: %s\n\nError log:\n", Version, BuildTime)
		fmt.Fprintln(errorLog, err)

		switch err.(type) {
		case *lua.ApiError:
			errstr := strings.Split(err.Error(), "\n")[0]
			if len(errstr) < 10 || errstr[len(errstr)-10:] != "<game end>" {
				ShowErrorDialog(fmt.Sprintf("%s\n\nError saved to save/logs/OriginsBASS.log", err))
				panic(err)
			}
		default:
			ShowErrorDialog(fmt.Sprintf("%s\n\nError saved to save/logs/OriginsBASS.log", err))
			panic(err)
		}
	}
}

const helpText = `Options (case sensitive):
-h -?                   Help
-config <file>          Loads config from <file> (default save/config.ini)
-script <file>          Runs host script <file> (default script/main.lua)
-log <logfile>          Copies the log to <logfile>
-env <file>             Reads environment overrides from <file> (default .env)
-modpath <dirs>         Comma separated mod directories searched before the data pack
-datapack <dir>         Data pack directory
-setvolume <num>        Sets the global volume (0-4)

Debug Options:
-nomusic                Disables music
-nosound                Mixes without an audio device`

// Loops through given command line arguments and processes them for later use
func processCommandLine(args []string) {
	sys.cmdFlags = make(map[string]string)
	boolFlags := map[string]bool{
		"-nomusic": true,
		"-nosound": true,
	}
	key := ""
	r1, _ := regexp.Compile("^-[h%?]$")
	r2, _ := regexp.Compile("^-")
	for _, a := range args {
		_, err := strconv.ParseFloat(a, 64)
		isNumber := err == nil

		// If there was a flag 'key' expecting a value, and 'a' is a number or not a flag
		if key != "" && (isNumber || !r2.MatchString(a)) {
			sys.cmdFlags[key] = a
			key = ""
		} else if r2.MatchString(a) {
			// If getting help about command line options
			if r1.MatchString(a) {
				fmt.Print("OriginsBASS command line options\n\n" + helpText + "\n")
				os.Exit(0)
			}
			if _, isBool := boolFlags[a]; isBool {
				sys.cmdFlags[a] = "true"
			} else {
				sys.cmdFlags[a] = ""
				key = a
			}
		}
	}
	// After the loop, if a key is still waiting for a value, set it to "true".
	if key != "" {
		sys.cmdFlags[key] = "true"
	}
}

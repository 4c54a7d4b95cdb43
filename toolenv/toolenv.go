// Package toolenv locates the external programs the variant tools depend on
// and checks that they are usable.
package toolenv

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"v.io/x/lib/lookpath"
)

// Tools names the external programs and files in use. Fields that hold a
// bare name, without a path separator, are looked up in $PATH.
type Tools struct {
	Java       string
	Python     string
	Jar        string
	SortScript string
}

// Bundled returns the tool locations of an installation rooted at root.
func Bundled(root string) Tools {
	return Tools{
		Java:       filepath.Join(root, "opt", "jdk1.8.0_131", "bin", "java"),
		Python:     filepath.Join(root, "opt", "miniconda2", "bin", "python"),
		Jar:        filepath.Join(root, "VarSim.jar"),
		SortScript: filepath.Join(root, "src", "sort_vcf.sh"),
	}
}

// Resolve fills in t. A bundled program under root is preferred when it
// exists. Otherwise the value already in t, or the default command name,
// is looked up in $PATH. The jar and sort script are never searched for.
func Resolve(root string, t Tools) (Tools, error) {
	b := Bundled(root)
	var err error
	if t.Java, err = resolve(b.Java, t.Java, "java"); err != nil {
		return t, err
	}
	if t.Python, err = resolve(b.Python, t.Python, "python"); err != nil {
		return t, err
	}
	if t.Jar == "" {
		t.Jar = b.Jar
	}
	if t.SortScript == "" {
		t.SortScript = b.SortScript
	}
	return t, nil
}

func resolve(bundled, configured, name string) (string, error) {
	if isFile(bundled) {
		return bundled, nil
	}
	if configured == "" {
		configured = name
	}
	if strings.ContainsRune(configured, filepath.Separator) {
		return configured, nil
	}
	path, err := lookpath.Look(map[string]string{"PATH": os.Getenv("PATH")}, configured)
	if err != nil {
		return "", errors.E(errors.NotExist, err, "toolenv: locate", configured)
	}
	return path, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// MinJavaVersion is the oldest supported Java runtime.
var MinJavaVersion = []int{1, 8}

// CheckJava runs "java -version" and fails unless the reported version is
// at least MinJavaVersion.
func CheckJava(ctx context.Context, java string) error {
	out, err := exec.CommandContext(ctx, java, "-Xmx100m", "-version").CombinedOutput()
	if err != nil {
		return errors.E(errors.Unavailable, err, "java not found or not working properly:", java)
	}
	log.Debug.Printf("java version output:\n%s", out)
	v, err := parseJavaVersion(string(out))
	if err != nil {
		return err
	}
	if compareVersions(v, MinJavaVersion) < 0 {
		return errors.E(errors.NotSupported, fmt.Sprintf("java %s is too old, need %s or higher",
			formatVersion(v), formatVersion(MinJavaVersion)))
	}
	return nil
}

// parseJavaVersion extracts the version from the first line of out that
// mentions "version", such as
//
//	openjdk version "1.8.0_131"
//
// The version is the third field with quotes removed, split into its
// numeric components.
func parseJavaVersion(out string) ([]int, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "version") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			break
		}
		var v []int
		for _, part := range strings.FieldsFunc(strings.Trim(fields[2], `"`), isVersionSep) {
			n, err := strconv.Atoi(part)
			if err != nil {
				break
			}
			v = append(v, n)
		}
		if len(v) == 0 {
			break
		}
		return v, nil
	}
	return nil, errors.E(errors.Invalid, "could not detect java version from output:\n"+out)
}

func isVersionSep(r rune) bool { return r == '.' || r == '_' || r == '-' || r == '+' }

func compareVersions(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func formatVersion(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ".")
}

// Version asks the simulator jar for its version string.
func Version(ctx context.Context, t Tools) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Java, "-jar", t.Jar, "-version")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.E(err, fmt.Sprintf("%s -jar %s -version: %s", t.Java, t.Jar, strings.TrimSpace(stderr.String())))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// requiredOpts lists the flags each supported read simulator must be given.
var requiredOpts = map[string][]string{
	"dwgsim":    {"-e", "-E", "-d", "-s", "-1", "-2"},
	"art":       {"-p", "-l", "-m", "-s"},
	"longislnd": nil,
}

// CheckSimulatorOpts verifies that opts, a space-separated option string,
// carries every flag required by simulator. An empty simulator is accepted.
func CheckSimulatorOpts(simulator, opts string) error {
	if simulator == "" {
		return nil
	}
	required, ok := requiredOpts[simulator]
	if !ok {
		return errors.E(errors.NotSupported, fmt.Sprintf("simulator %s is not supported", simulator))
	}
	given := map[string]bool{}
	for _, f := range strings.Fields(opts) {
		given[f] = true
	}
	for _, f := range required {
		if !given[f] {
			return errors.E(errors.Invalid, fmt.Sprintf("%s is missing for %s", f, simulator))
		}
	}
	return nil
}

// ParseLogLevel maps "info", "warn" and "debug" to a log level. Warnings are
// reported at log.Error, the least verbose level that still prints them.
// Anything else means log.Info.
func ParseLogLevel(s string) log.Level {
	switch s {
	case "warn":
		return log.Error
	case "debug":
		return log.Debug
	}
	return log.Info
}

var addLogFlag sync.Once

// SetLogLevel applies ParseLogLevel(s) to the process logger by way of the
// -log flag that log.AddFlags registers on flag.CommandLine.
func SetLogLevel(s string) error {
	addLogFlag.Do(func() {
		if flag.Lookup("log") == nil {
			log.AddFlags()
		}
	})
	name := "info"
	switch ParseLogLevel(s) {
	case log.Error:
		name = "error"
	case log.Debug:
		name = "debug"
	}
	if err := flag.Set("log", name); err != nil {
		return errors.E(errors.Invalid, err, "set log level", s)
	}
	return nil
}

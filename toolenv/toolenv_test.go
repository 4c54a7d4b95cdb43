package toolenv

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func writeScript(t *testing.T, path, body string) string {
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	assert.NoError(t, ioutil.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestParseJavaVersion(t *testing.T) {
	tests := []struct {
		out  string
		want []int
	}{
		{"java version \"1.8.0_131\"\nJava(TM) SE Runtime Environment", []int{1, 8, 0, 131}},
		{"Picked up _JAVA_OPTIONS\nopenjdk version \"11.0.2\" 2019-01-15\n", []int{11, 0, 2}},
		{"openjdk version \"17\" 2021-09-14", []int{17}},
	}
	for _, tt := range tests {
		got, err := parseJavaVersion(tt.out)
		assert.NoError(t, err)
		expect.EQ(t, got, tt.want)
	}
	_, err := parseJavaVersion("command not found")
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestCompareVersions(t *testing.T) {
	expect.EQ(t, compareVersions([]int{1, 7, 0, 80}, MinJavaVersion), -1)
	expect.EQ(t, compareVersions([]int{1, 8}, MinJavaVersion), 0)
	expect.EQ(t, compareVersions([]int{1, 8, 0, 131}, MinJavaVersion), 1)
	expect.EQ(t, compareVersions([]int{11}, MinJavaVersion), 1)
}

func TestCheckJava(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	ok := writeScript(t, filepath.Join(tempDir, "java8"), "echo 'java version \"1.8.0_131\"' >&2\n")
	expect.NoError(t, CheckJava(ctx, ok))

	old := writeScript(t, filepath.Join(tempDir, "java7"), "echo 'java version \"1.7.0_80\"' >&2\n")
	err := CheckJava(ctx, old)
	expect.True(t, errors.Is(errors.NotSupported, err))
	expect.HasSubstr(t, err.Error(), "1.7.0.80")

	broken := writeScript(t, filepath.Join(tempDir, "javax"), "exit 1\n")
	expect.True(t, errors.Is(errors.Unavailable, CheckJava(ctx, broken)))
}

func TestVersion(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	java := writeScript(t, filepath.Join(tempDir, "java"), "[ \"$1\" = -jar ] && [ \"$3\" = -version ] && printf '  VarSim 0.8.6\\n\\n'\n")
	v, err := Version(context.Background(), Tools{Java: java, Jar: filepath.Join(tempDir, "VarSim.jar")})
	assert.NoError(t, err)
	expect.EQ(t, v, "VarSim 0.8.6")

	failing := writeScript(t, filepath.Join(tempDir, "java-broken"), "echo 'no jar' >&2\nexit 1\n")
	_, err = Version(context.Background(), Tools{Java: failing, Jar: "VarSim.jar"})
	expect.HasSubstr(t, err.Error(), "no jar")
}

func TestResolve(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	root := filepath.Join(tempDir, "root")
	bundled := Bundled(root)
	writeScript(t, bundled.Java, "exit 0\n")
	writeScript(t, filepath.Join(tempDir, "bin", "mypython"), "exit 0\n")
	defer os.Setenv("PATH", os.Getenv("PATH"))
	assert.NoError(t, os.Setenv("PATH", filepath.Join(tempDir, "bin")))

	got, err := Resolve(root, Tools{Java: "java", Python: "mypython"})
	assert.NoError(t, err)
	expect.EQ(t, got.Java, bundled.Java)
	expect.EQ(t, got.Python, filepath.Join(tempDir, "bin", "mypython"))
	expect.EQ(t, got.Jar, bundled.Jar)
	expect.EQ(t, got.SortScript, bundled.SortScript)

	got, err = Resolve(root, Tools{Python: "/usr/local/bin/python3", SortScript: "/x/sort.sh"})
	assert.NoError(t, err)
	expect.EQ(t, got.Python, "/usr/local/bin/python3")
	expect.EQ(t, got.SortScript, "/x/sort.sh")

	_, err = Resolve(filepath.Join(tempDir, "elsewhere"), Tools{})
	expect.True(t, errors.Is(errors.NotExist, err))
}

func TestCheckSimulatorOpts(t *testing.T) {
	expect.NoError(t, CheckSimulatorOpts("", ""))
	expect.NoError(t, CheckSimulatorOpts("longislnd", ""))
	expect.NoError(t, CheckSimulatorOpts("art", "-p -l 100 -m 400 -s 30"))
	expect.NoError(t, CheckSimulatorOpts("dwgsim", "-e 0 -E 0 -d 400 -s 30 -1 100 -2 100"))

	err := CheckSimulatorOpts("art", "-p -l 100 -s 30")
	expect.True(t, errors.Is(errors.Invalid, err))
	expect.HasSubstr(t, err.Error(), "-m is missing for art")

	// A flag must appear as its own token.
	expect.NotNil(t, CheckSimulatorOpts("dwgsim", "-e 0 -E 0 -d 400 -s 30 -10 -2 100"))

	expect.True(t, errors.Is(errors.NotSupported, CheckSimulatorOpts("mason", "-n 10")))
}

func TestParseLogLevel(t *testing.T) {
	expect.EQ(t, ParseLogLevel("info"), log.Info)
	expect.EQ(t, ParseLogLevel("warn"), log.Error)
	expect.EQ(t, ParseLogLevel("debug"), log.Debug)
	expect.EQ(t, ParseLogLevel("verbose"), log.Info)
}

func TestSetLogLevel(t *testing.T) {
	defer SetLogLevel("info")
	assert.NoError(t, SetLogLevel("debug"))
	expect.True(t, log.At(log.Debug))

	assert.NoError(t, SetLogLevel("warn"))
	expect.False(t, log.At(log.Info))
	expect.True(t, log.At(log.Error))

	assert.NoError(t, SetLogLevel("bogus"))
	expect.True(t, log.At(log.Info))
	expect.False(t, log.At(log.Debug))
}

//go:build ignore

// build.go - surveytracker build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, test, clean, demo

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "surveytracker"

var (
	distDir = "dist"

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	switch *target {
	case "all":
		buildExecutable(*verbose)
	case "test":
		runTests(*verbose)
	case "clean":
		clean()
	case "demo":
		buildExecutable(*verbose)
		runDemo(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "     surveytracker - Build System" + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func exeName() string {
	if runtime.GOOS == "windows" {
		return module + ".exe"
	}
	return module
}

func buildExecutable(verbose bool) {
	printInfo("Building surveytracker...")

	outputPath := filepath.Join(distDir, exeName())
	ldflags := fmt.Sprintf("-s -w -X %s/internal/app.BuildTime=%s", module, time.Now().UTC().Format(time.RFC3339))

	args := []string{"build", "-ldflags", ldflags, "-o", outputPath, "./cmd/surveytracker"}
	if verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
	}
	run(verbose, "go", args...)

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", outputPath, float64(info.Size())/1024/1024))
	}
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	run(true, "go", append(args, "./...")...)
	printSuccess("All tests passed")
}

// runDemo writes synthetic exports into dist/data and builds a report from them.
func runDemo(verbose bool) {
	exe, err := filepath.Abs(filepath.Join(distDir, exeName()))
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printInfo("Generating demo data...")
	run(verbose, exe, "gendata", "--seed", "42")
	printInfo("Building demo report...")
	run(true, exe, "report")
}

func clean() {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean %s: %v", distDir, err))
		os.Exit(1)
	}
	printSuccess("Build artifacts cleaned")
}

func run(show bool, name string, args ...string) {
	cmd := exec.Command(name, args...)
	if show {
		fmt.Printf("Running: %s %s\n", name, strings.Join(args, " "))
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("%s failed: %v", name, err))
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all     Build dist/surveytracker (default)")
	fmt.Println("  test    Run all Go tests with the race detector")
	fmt.Println("  clean   Remove dist/")
	fmt.Println("  demo    Build, generate synthetic exports and run a report")
}

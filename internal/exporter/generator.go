package exporter

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"surveytracker/internal/dataprocessing"
)

// GeneratedVariables are the unique test variables of synthetic exports.
var GeneratedVariables = []string{
	"Question_1_Response", "Question_2_Response", "Question_3_Response",
	"Comment", "Feedback",
}

const generatedTimeLayout = "2006-01-02 15:04:05"

// GeneratorOptions controls synthetic survey export generation.
type GeneratorOptions struct {
	Files    int       // pre/post pairs to write
	Rows     int       // rows per file
	Seed     uint64    // 0 picks a random seed
	Teachers []string  // configured teacher ids; also written to teachers.csv
	Days     int       // spread of End Time values before Now
	Now      time.Time // zero means time.Now()

	// OtherRate is the share of rows whose Student ID has an unconfigured prefix.
	OtherRate float64
}

// DefaultGeneratorOptions mirrors the demo data set: three pre/post pairs.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Files:     3,
		Rows:      100,
		Teachers:  []string{"101", "102", "103", "104"},
		Days:      30,
		OtherRate: 0.1,
	}
}

// Generator writes synthetic survey exports.
type Generator struct {
	writer *CSVWriter
	opts   GeneratorOptions
	rng    *rand.Rand
}

// NewGenerator creates a generator writing through w.
func NewGenerator(w *CSVWriter, opts GeneratorOptions) *Generator {
	def := DefaultGeneratorOptions()
	if opts.Files <= 0 {
		opts.Files = def.Files
	}
	if opts.Rows <= 0 {
		opts.Rows = def.Rows
	}
	if len(opts.Teachers) == 0 {
		opts.Teachers = def.Teachers
	}
	if opts.Days <= 0 {
		opts.Days = def.Days
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{
		writer: w,
		opts:   opts,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Generate writes teachers.csv and Files pairs of pre_survey_N.csv and
// post_survey_N.csv, returning the written paths.
func (g *Generator) Generate() ([]string, error) {
	teachers := make([][]string, len(g.opts.Teachers))
	for i, id := range g.opts.Teachers {
		teachers[i] = []string{id, fmt.Sprintf("Teacher %s", id)}
	}
	if err := g.writer.WriteCSV("teachers.csv", WriteOptions{
		Headers: []string{"teacher_id", "teacher_name"},
		Records: teachers,
	}); err != nil {
		return nil, fmt.Errorf("failed to write teacher configuration: %w", err)
	}

	paths := []string{g.writer.resolvePath("teachers.csv")}
	for i := 1; i <= g.opts.Files; i++ {
		for _, period := range []string{"pre", "post"} {
			path, err := g.GenerateSurveyFile(fmt.Sprintf("%s_survey_%d.csv", period, i))
			if err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}

	g.writer.logger.Info("Generated synthetic survey exports",
		slog.Int("files", len(paths)-1),
		slog.Int("rows_per_file", g.opts.Rows))
	return paths, nil
}

// GenerateSurveyFile writes one export with the standard header followed by
// the generated variables.
func (g *Generator) GenerateSurveyFile(name string) (string, error) {
	header := append(dataprocessing.StandardColumns(), GeneratedVariables...)
	sw, err := g.writer.CreateStreamWriter(name, header, false)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}

	for range g.opts.Rows {
		if err := sw.WriteRecord(g.row()); err != nil {
			sw.Close()
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := sw.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	return sw.Path(), nil
}

func (g *Generator) row() []string {
	r := g.rng
	teacher := g.opts.Teachers[r.IntN(len(g.opts.Teachers))]
	if r.Float64() < g.opts.OtherRate {
		teacher = fmt.Sprintf("%d", 900+r.IntN(100))
	}

	start := g.opts.Now.AddDate(0, 0, -g.opts.Days)
	end := start.Add(time.Duration(r.IntN(g.opts.Days*24*60)) * time.Minute)
	begin := end.Add(-time.Duration(5+r.IntN(56)) * time.Minute)

	return []string{
		fmt.Sprintf("TEST%d", 1000+r.IntN(9000)),
		fmt.Sprintf("Assessment %d", 1+r.IntN(10)),
		fmt.Sprintf("UID%d", 10000+r.IntN(90000)),
		fmt.Sprintf("%sS%d", teacher, 1000+r.IntN(9000)),
		pick(r, "Completed", "In Progress", "Not Started"),
		pick(r, "100%", "50%", "0%"),
		begin.Format(generatedTimeLayout),
		end.Format(generatedTimeLayout),
		fmt.Sprint(r.IntN(101)),
		fmt.Sprint(r.IntN(101)),
		fmt.Sprint(18 + r.IntN(8)),
		pick(r, "Male", "Female", "Other"),
		pick(r, "A", "B", "C", "D", "F"),
		pick(r, "English", "Spanish", "French"),
		pick(r, "Caucasian", "African American", "Asian", "Other"),
		pick(r, "CA", "TX", "FL", "NY", "IL"),
		maybe(r, fmt.Sprintf("Response %d", 1+r.IntN(5))),
		maybe(r, fmt.Sprintf("Answer %d", 1+r.IntN(10))),
		maybe(r, fmt.Sprintf("Choice %d", 1+r.IntN(3))),
		maybe(r, fmt.Sprintf("Comment %d", 1+r.IntN(100))),
		maybe(r, fmt.Sprintf("Feedback %d", 1+r.IntN(50))),
	}
}

func pick(r *rand.Rand, options ...string) string {
	return options[r.IntN(len(options))]
}

// maybe leaves a variable blank two times in three.
func maybe(r *rand.Rand, value string) string {
	if r.IntN(3) == 0 {
		return value
	}
	return ""
}

// Package config provides centralized configuration management for the
// survey tracker. It loads configuration from multiple sources, validates it,
// and resolves the directories a report run uses.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (surveytracker.yaml or SURVEY_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SURVEY_<SECTION>_<FIELD>:
//
//	SURVEY_REPORT_DATE_FIELD=StartTime
//	SURVEY_REPORT_TEACHERS_FILE=config/teachers.csv
//	SURVEY_LOGGING_LEVEL=debug
//	SURVEY_SERVER_PORT=9090
//
// # Path Management
//
// Paths resolves the configured input, output and log directories against a
// base directory (the executable location by default):
//
//	paths, err := config.GetPaths(cfg)
//	if err != nil {
//	    return err
//	}
//	if err := paths.EnsureDirectories(); err != nil {
//	    return err
//	}
package config

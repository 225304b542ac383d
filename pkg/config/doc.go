/*
Package config loads the timeclock client configuration.

Sources, lowest precedence first:

	1. built-in defaults (Default)
	2. ~/.timeclock/config.yaml, or the file given with --config
	3. a .env file in the working directory (joho/godotenv)
	4. TIMECLOCK_* environment variables
	5. command-line flags (applied by the CLI)

Example config.yaml:

	api_url: https://attendance.example.com/api
	radius_meters: 250
	timeout: 10s
	log_level: info
	location:
	  fix_file: /run/gps/fix.yaml
	  max_age: 2m
*/
package config

package config

import "github.com/joho/godotenv"

// LoadEnv loads a .env file from the working directory, if any, into the
// process environment. Variables already set are left untouched. The error
// satisfies os.IsNotExist when there is no .env file.
func LoadEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}

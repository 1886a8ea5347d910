// Package config handles configuration loading for postmaker.
//
// Values come from built-in defaults, an optional .postmaker.yaml (or .yml,
// .json) file and POSTMAKER_* environment variables. Header names read from
// a config file are lower-cased by the loader; HTTP treats them
// case-insensitively.
package config

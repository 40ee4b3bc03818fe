package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/vllmpoc/docs.go`.
//
// @title           vLLM POC API
// @version         1.0
// @description     OpenAI-style chat completions served by vLLM, with platform-aware engine setup.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

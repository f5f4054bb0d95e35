package main

// General API documentation for swaggo. Regenerate internal/apidocs with:
//
//	swag init -g cmd/llmapi/docs.go -o internal/apidocs --packageName apidocs
//
// @title           LLM API with Ollama
// @version         0.1.0
// @description     HTTP façade over a local Ollama server: health, model listing and text generation.
//
// @contact.name   llmapi maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

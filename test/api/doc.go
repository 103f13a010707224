/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package api provides live test utilities for the CloudStack address API.
//
// The suites drive a real control plane through the same client the CLI
// uses, wrapping its transport so that every request can be logged with
// the trace ID it was sent with.  Addresses allocated by a test are always
// released by a cleanup registered at allocation time, so an interrupted
// run leaves nothing behind that it can avoid.
//
// Configuration comes from the environment or test/.env, see TestConfig.
// Setting SKIP_INTEGRATION, or omitting the credentials, skips the suites.
package api

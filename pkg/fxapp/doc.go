/*
 * Copyright (c) 2019 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package fxapp builds upon https://godoc.org/go.uber.org/fx to provide a standardized application container.

The container owns every application dependency and the application lifecycle:

  - all app deployments have an identity
    - each app is assigned an ID and a release ID, see Desc
    - each running app instance is assigned a unique InstanceID
  - application logging is structured
    - zerolog is used to provide structured JSON logging
    - log events are strongly typed, i.e., each event type is identified by a ULID (see EventTypeID)
  - startup is explicit
    - components bind connection establishment to the app lifecycle via fx.Lifecycle OnStart hooks
    - the HTTP server only starts listening after every other component has started
  - readiness and liveness probes
  - health checks
  - Prometheus metrics
*/
package fxapp

package swagger

import _ "embed"

//go:embed openapi.yaml
var openapiSpec []byte

package main

import "github.com/verdantlabs/cropsight/cmd"

// @title           CropSight API
// @version         1.0.0
// @description     Dataset lifecycle and retraining orchestration for plant disease detection
// @contact.name    API Support
// @contact.url     https://github.com/verdantlabs/cropsight
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}

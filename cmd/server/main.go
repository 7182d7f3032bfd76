// @title           fylr API
// @version         1.0
// @description     Personal cloud file storage: folders, uploads, starring and a cascading trash.
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

func main() {
	Execute()
}

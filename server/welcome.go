package server

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Version is the program version shown on the welcome page. It is set by
// the command at start-up.
var Version = "dev"

func WelcomeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fmt.Fprintf(w, "fedharvest (%s)\n", Version)
}

// Package http provides the request and response helpers used by routed
// controllers.
//
//	func (c *ItemController) Create(w http.ResponseWriter, r *http.Request) {
//	    req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
//
//	    var body struct {
//	        Name string `json:"name" validate:"required"`
//	    }
//	    if err := req.Bind(&body); err != nil {
//	        res.ValidationError(err) // 422 {"errors": {"Name": ["required"]}}
//	        return
//	    }
//	    res.Created(body)
//	}
package http

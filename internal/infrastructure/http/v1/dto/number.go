package dto

// NumberResponse carries one generated number.
type NumberResponse struct {
	Number string `json:"number"`
}

// NumbersResponse carries a batch, in issue order.
type NumbersResponse struct {
	Numbers []string `json:"numbers"`
}

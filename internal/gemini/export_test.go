package gemini

// SetBaseURL points the client at a test server.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

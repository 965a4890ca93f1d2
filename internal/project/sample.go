package project

import (
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/vars"
)

const SampleName = "Sample API Project"

const sampleBaseURL = "https://jsonplaceholder.typicode.com"

const samplePostBody = `{
  "title": "Sample Post",
  "body": "This is a sample post",
  "userId": 1
}`

// NewSample returns a project seeded with a few requests against a public
// test API and an active "Development" environment.
func NewSample(id string) *Project {
	p := New(id, SampleName)

	users := model.NewRequest("Get Users")
	users.URL = sampleBaseURL + "/users"

	user := model.NewRequest("Get Single User")
	user.URL = sampleBaseURL + "/users/1"

	post := model.NewRequest("Create Post")
	post.Method = model.MethodPost
	post.URL = sampleBaseURL + "/posts"
	post.Body = model.RawBody{Text: samplePostBody}
	post.Headers["Content-Type"] = "application/json"

	p.root.AddRequest(users)
	p.root.AddRequest(user)

	posts := model.NewFolder("Posts")
	posts.AddRequest(post)
	p.root.AddFolder(posts)

	dev := vars.NewEnvironment("Development", map[string]string{
		"API_URL": sampleBaseURL,
		"USER_ID": "1",
	})
	p.env.Add(dev)
	p.env.SetActive(dev.ID)
	return p
}

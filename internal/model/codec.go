package model

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/luminahq/lumina/internal/errdef"
)

type requestJSON struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Method             string            `json:"method"`
	URL                string            `json:"url"`
	Headers            map[string]string `json:"headers"`
	Params             map[string]string `json:"params"`
	BodyType           string            `json:"body_type"`
	BodyRaw            string            `json:"body_raw"`
	BodyForm           map[string]string `json:"body_form"`
	AuthType           string            `json:"auth_type"`
	AuthBasicUsername  string            `json:"auth_basic_username"`
	AuthBasicPassword  string            `json:"auth_basic_password"`
	AuthBearerToken    string            `json:"auth_bearer_token"`
	AuthAPIKeyName     string            `json:"auth_api_key_name"`
	AuthAPIKeyValue    string            `json:"auth_api_key_value"`
	AuthAPIKeyLocation string            `json:"auth_api_key_location"`
}

func (r *Request) MarshalJSON() ([]byte, error) {
	w := requestJSON{
		ID:                 r.ID,
		Name:               r.Name,
		Method:             string(r.Method),
		URL:                r.URL,
		Headers:            cloneMap(r.Headers),
		Params:             cloneMap(r.Params),
		BodyType:           string(r.BodyKind()),
		BodyForm:           map[string]string{},
		AuthType:           string(r.AuthKind()),
		AuthAPIKeyLocation: string(KeyInHeader),
	}
	switch b := r.Body.(type) {
	case RawBody:
		w.BodyRaw = b.Text
	case URLEncodedBody, MultipartBody:
		w.BodyForm = cloneMap(FormFields(b))
	}
	switch a := r.Auth.(type) {
	case BasicAuth:
		w.AuthBasicUsername = a.Username
		w.AuthBasicPassword = a.Password
	case BearerAuth:
		w.AuthBearerToken = a.Token
	case APIKeyAuth:
		w.AuthAPIKeyName = a.Name
		w.AuthAPIKeyValue = a.Value
		if a.Location != "" {
			w.AuthAPIKeyLocation = string(a.Location)
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON rejects unknown method, body_type, auth_type and key
// location values. Missing values take the defaults of NewRequest.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w requestJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return errdef.Wrap(errdef.CodeValidation, err, "decode request")
	}

	method := MethodGet
	if w.Method != "" {
		m, err := ParseMethod(w.Method)
		if err != nil {
			return err
		}
		method = m
	}
	bodyKind, err := ParseBodyKind(w.BodyType)
	if err != nil {
		return err
	}
	authKind, err := ParseAuthKind(w.AuthType)
	if err != nil {
		return err
	}
	out := Request{
		ID:      w.ID,
		Name:    w.Name,
		Method:  method,
		URL:     w.URL,
		Headers: cloneMap(w.Headers),
		Params:  cloneMap(w.Params),
		Body:    NewBody(bodyKind, w.BodyRaw, w.BodyForm),
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Name == "" {
		out.Name = "New Request"
	}
	switch authKind {
	case AuthBasic:
		out.Auth = BasicAuth{Username: w.AuthBasicUsername, Password: w.AuthBasicPassword}
	case AuthBearer:
		out.Auth = BearerAuth{Token: w.AuthBearerToken}
	case AuthAPIKey:
		location, err := ParseKeyLocation(w.AuthAPIKeyLocation)
		if err != nil {
			return err
		}
		out.Auth = APIKeyAuth{Name: w.AuthAPIKeyName, Value: w.AuthAPIKeyValue, Location: location}
	default:
		out.Auth = NoAuth{}
	}
	*r = out
	return nil
}

type folderJSON struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Requests []*Request `json:"requests"`
	Folders  []*Folder  `json:"folders"`
}

func (f *Folder) MarshalJSON() ([]byte, error) {
	w := folderJSON{ID: f.ID, Name: f.Name, Requests: f.Requests, Folders: f.Folders}
	if w.Requests == nil {
		w.Requests = []*Request{}
	}
	if w.Folders == nil {
		w.Folders = []*Folder{}
	}
	return json.Marshal(w)
}

func (f *Folder) UnmarshalJSON(data []byte) error {
	var w folderJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Name == "" {
		w.Name = "New Folder"
	}
	*f = Folder{ID: w.ID, Name: w.Name}
	for _, r := range w.Requests {
		if r != nil {
			f.Requests = append(f.Requests, r)
		}
	}
	for _, c := range w.Folders {
		if c != nil {
			f.Folders = append(f.Folders, c)
		}
	}
	return nil
}

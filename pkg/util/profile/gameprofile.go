// Package profile contains the Mojang game profile returned by the
// authentication and session servers.
package profile

import (
	"errors"
	"fmt"

	"go.minekube.com/yggdrasil/pkg/util/uuid"
)

// GameProfile is a Mojang game profile.
type GameProfile struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties,omitempty"`
}

func (g *GameProfile) String() string {
	return fmt.Sprintf("GameProfile{ID:%s,Name:%s,Properties:%s}",
		g.ID.Undashed(), g.Name, g.Properties)
}

// Validate reports an error if the profile is missing its id or name.
func (g *GameProfile) Validate() error {
	if g == nil {
		return errors.New("missing profile")
	}
	if g.ID == uuid.Nil {
		return errors.New("profile misses id")
	}
	if g.Name == "" {
		return errors.New("profile misses name")
	}
	return nil
}

// Property is a Mojang profile property.
type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

func (p Property) String() string {
	return fmt.Sprintf("Property{Name:%s,Value:%s,Signature:%s}",
		p.Name, p.Value, p.Signature)
}

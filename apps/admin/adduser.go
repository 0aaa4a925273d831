package main

import (
	"context"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/trainings/apps/api/echo"
	"github.com/trezcool/trainings/core/user"
)

func (cli *commandLine) addUser(name, email string, roles []string) (user.User, error) {
	ctx := context.Background()
	nu := user.NewUser{
		Name:  name,
		Email: email,
		Roles: roles,
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return user.User{}, err
	}
	return cli.usrSvc.Create(ctx, nu)
}

// issueToken returns a signed API token for the user with the given email.
func (cli *commandLine) issueToken(email string) (string, error) {
	usr, err := cli.usrSvc.GetByEmail(context.Background(), email)
	if err != nil {
		return "", errors.Wrap(err, "finding user by email")
	}
	return echoapi.GenerateToken(echoapi.GetUserClaims(cli.conf, usr), cli.conf.SecretKey)
}

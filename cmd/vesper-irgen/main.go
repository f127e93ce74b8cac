// Command vesper-irgen demonstrates the IR generation stage: it lowers a
// small built-in token contract to stack IR and prints the result. With a
// project manifest it also checks the compiler pragma and picks the EVM
// target; with --watch it re-runs whenever the manifest changes.
package main

import (
	"flag"
	"math/big"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"

	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/build"
	"github.com/vesper-lang/vesper/internal/evm"
	"github.com/vesper-lang/vesper/internal/intrinsics"
	"github.com/vesper-lang/vesper/internal/irgen"
	"github.com/vesper-lang/vesper/internal/types"
)

func main() {
	projectPath := flag.String("project", "", "path to a vesper.toml manifest")
	watch := flag.Bool("watch", false, "re-run whenever the manifest changes")
	flag.Parse()

	if err := run(*projectPath); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	if !*watch {
		return
	}
	if *projectPath == "" {
		pterm.Error.Println("--watch requires --project")
		os.Exit(1)
	}
	if err := watchProject(*projectPath); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(projectPath string) error {
	target := evm.Default
	if projectPath != "" {
		project, err := build.LoadProject(projectPath)
		if err != nil {
			return err
		}
		if err := project.CheckPragma(); err != nil {
			return err
		}
		target, err = project.TargetVersion()
		if err != nil {
			return err
		}
		pterm.Info.Printfln("project %s, compiler %s, target %s", project.Name, build.Version, target)
	} else {
		pterm.Info.Printfln("compiler %s, target %s (default)", build.Version, target)
	}

	pterm.DefaultHeader.Println("vesper-irgen demo: token transfer")
	code, err := lowerDemoContract(target)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("lowered body")
	pterm.Println(code)
	return nil
}

func watchProject(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}
	pterm.Info.Printfln("watching %s", path)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if err := run(path); err != nil {
					pterm.Error.Println(err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			pterm.Error.Println(err)
		}
	}
}

// lowerDemoContract builds the tree of a small token transfer function and
// lowers its body. The tree matches what the resolver and checker would
// produce for:
//
//	contract Token {
//	    mapping(address => uint256) balances;        // slot 0
//	    event Transfer(address indexed from, address indexed to, uint256 amount);
//
//	    function transfer(address to, uint256 amount) public {
//	        require(balances[msg.sender] >= amount, "insufficient balance");
//	        balances[msg.sender] -= amount;
//	        balances[to] += amount;
//	        emit Transfer(msg.sender, to, amount);
//	    }
//	}
func lowerDemoContract(target evm.Version) (string, error) {
	balancesType := &types.Mapping{Key: types.AddressType, Value: types.U256}
	balances := &ast.VariableDeclaration{Name: "balances", Type: balancesType, IsStateVariable: true}

	layout := intrinsics.NewLayout()
	layout.Assign(balances, big.NewInt(0), 0)

	transferEvent := &ast.EventDeclaration{
		Name: "Transfer",
		Parameters: []*ast.EventParameter{
			{Name: "from", Type: types.AddressType, Indexed: true},
			{Name: "to", Type: types.AddressType, Indexed: true},
			{Name: "amount", Type: types.U256},
		},
		// keccak256("Transfer(address,address,uint256)")
		SignatureHash: mustHex("ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"),
	}

	ctx := irgen.NewContext(intrinsics.Runtime{}, intrinsics.ABI{}, layout, intrinsics.NewDispatch(), target)
	g := irgen.New(ctx)

	to := &ast.VariableDeclaration{Name: "to", Type: types.AddressType}
	amount := &ast.VariableDeclaration{Name: "amount", Type: types.U256}
	fn := &ast.FunctionDeclaration{
		Name:       "transfer",
		Parameters: []*ast.VariableDeclaration{to, amount},
	}
	g.RegisterParameters(fn)

	msgType := &types.Magic{Kind: "msg"}
	msgSender := func() ast.Expression {
		return &ast.MemberAccess{
			Base: &ast.Identifier{
				Name: "msg",
				Decl: &ast.MagicDeclaration{Name: "msg", Type: msgType},
				Type: msgType,
			},
			Member: "sender",
			Type:   types.AddressType,
		}
	}
	balanceOf := func(key ast.Expression) ast.Expression {
		return &ast.IndexAccess{
			Base:  &ast.Identifier{Name: "balances", Decl: balances, Type: balancesType},
			Index: key,
			Type:  types.U256,
		}
	}
	identFor := func(d *ast.VariableDeclaration) ast.Expression {
		return &ast.Identifier{Name: d.Name, Decl: d, Type: d.Type}
	}

	messageType := &types.StringLiteral{Value: "insufficient balance"}
	body := []ast.Statement{
		&ast.ExpressionStatement{Expression: &ast.FunctionCall{
			Callee: &ast.Identifier{
				Name: "require",
				Decl: &ast.MagicDeclaration{Name: "require"},
				Type: &types.Function{Kind: types.FunctionKindRequire},
			},
			Arguments: []ast.Expression{
				&ast.BinaryOperation{
					Op:         ast.TokenGreaterThanOrEqual,
					Left:       balanceOf(msgSender()),
					Right:      identFor(amount),
					CommonType: types.U256,
					Type:       types.Bool,
				},
				&ast.Literal{Kind: ast.LiteralString, Str: messageType.Value, Type: messageType},
			},
			Kind: ast.CallFunction,
			Type: types.EmptyTuple,
		}},
		&ast.ExpressionStatement{Expression: &ast.Assignment{
			Op:   ast.TokenAssignSub,
			LHS:  balanceOf(msgSender()),
			RHS:  identFor(amount),
			Type: types.U256,
		}},
		&ast.ExpressionStatement{Expression: &ast.Assignment{
			Op:   ast.TokenAssignAdd,
			LHS:  balanceOf(identFor(to)),
			RHS:  identFor(amount),
			Type: types.U256,
		}},
		&ast.ExpressionStatement{Expression: &ast.FunctionCall{
			Callee: &ast.Identifier{
				Name: "Transfer",
				Decl: transferEvent,
				Type: &types.Function{Kind: types.FunctionKindEvent},
			},
			Arguments: []ast.Expression{msgSender(), identFor(to), identFor(amount)},
			Kind:      ast.CallFunction,
			Type:      types.EmptyTuple,
		}},
	}

	for _, stmt := range body {
		if err := g.Statement(stmt); err != nil {
			return "", err
		}
	}
	return g.CodeString(), nil
}

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("invalid hex constant: " + s)
	}
	return v
}

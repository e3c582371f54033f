package template

import (
	"strings"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/davidfraser/genshi/errortypes"
	"github.com/davidfraser/genshi/markup"
)

type vars map[string]interface{}

type renderTest struct {
	name   string
	input  string
	data   vars
	output string
	ok     bool
}

func (t renderTest) fails() renderTest {
	t.ok = false
	return t
}

func rendertest(name, input, output string) renderTest {
	return renderTest{name, input, nil, output, true}
}

func rendertestwdata(name, input string, data vars, output string) renderTest {
	return renderTest{name, input, data, output, true}
}

func runRenderTests(t *testing.T, tests []renderTest) {
	for _, test := range tests {
		var tmpl, err = ParseString(test.name+".xml", test.input, nil)
		if err != nil {
			if test.ok {
				t.Errorf("%s: parse error: %s", test.name, err)
			}
			continue
		}
		var result string
		result, err = tmpl.Generate(map[string]interface{}(test.data)).Render(markup.XML)
		switch {
		case !test.ok && err == nil:
			t.Errorf("%s: expected error; got none", test.name)
			continue
		case test.ok && err != nil:
			t.Errorf("%s: unexpected render error: %s", test.name, err)
			continue
		case !test.ok && err != nil:
			// expected error, got one
			continue
		}
		if result != test.output {
			t.Errorf("%s: unexpected output:\n%v", test.name, diff.LineDiff(test.output, result))
		}
	}
}

func TestAttrsDirective(t *testing.T) {
	runRenderTests(t, []renderTest{
		rendertestwdata("combined with loop", `<doc xmlns:py="http://genshi.edgewall.org/">
          <elem py:for="item in items" py:attrs="item"/>
        </doc>`,
			vars{"items": []map[string]interface{}{{"id": 1, "class": "foo"}, {"id": 2, "class": "bar"}}},
			`<doc>
          <elem class="foo" id="1"/><elem class="bar" id="2"/>
        </doc>`),

		rendertest("update existing attr", `<doc xmlns:py="http://genshi.edgewall.org/">
          <elem class="foo" py:attrs="{'class': 'bar'}"/>
        </doc>`, `<doc>
          <elem class="bar"/>
        </doc>`),

		rendertest("remove existing attr", `<doc xmlns:py="http://genshi.edgewall.org/">
          <elem class="foo" py:attrs="{'class': nil}"/>
        </doc>`, `<doc>
          <elem/>
        </doc>`),

		rendertest("pairs keep their order", `<doc xmlns:py="http://genshi.edgewall.org/">
          <elem py:attrs="[['z', 1], ['a', 2]]"/>
        </doc>`, `<doc>
          <elem z="1" a="2"/>
        </doc>`),

		rendertest("falsy value is ignored", `<doc xmlns:py="http://genshi.edgewall.org/">
          <elem class="foo" py:attrs="nil"/>
        </doc>`, `<doc>
          <elem class="foo"/>
        </doc>`),

		rendertest("overrides interpolated attr", `<doc xmlns:py="http://genshi.edgewall.org/">
          <elem class="${'foo'}" py:attrs="{'class': 'bar'}"/>
        </doc>`, `<doc>
          <elem class="bar"/>
        </doc>`),

		rendertest("not a mapping", `<doc xmlns:py="http://genshi.edgewall.org/">
          <elem py:attrs="42"/>
        </doc>`, "").fails(),
	})
}

func TestChooseDirective(t *testing.T) {
	runRenderTests(t, []renderTest{
		rendertest("multiple true whens", `<div xmlns:py="http://genshi.edgewall.org/" py:choose="">
          <span py:when="1 == 1">1</span>
          <span py:when="2 == 2">2</span>
          <span py:when="3 == 3">3</span>
        </div>`, `<div>
          <span>1</span>
        </div>`),

		rendertest("otherwise", `<div xmlns:py="http://genshi.edgewall.org/" py:choose="">
          <span py:when="false">hidden</span>
          <span py:otherwise="">hello</span>
        </div>`, `<div>
          <span>hello</span>
        </div>`),

		rendertest("nesting", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:choose="1">
            <div py:when="1" py:choose="3">
              <span py:when="2">2</span>
              <span py:when="3">3</span>
            </div>
          </div>
        </doc>`, `<doc>
          <div>
            <div>
              <span>3</span>
            </div>
          </div>
        </doc>`),

		rendertest("complex nesting", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:choose="1">
            <div py:when="1" py:choose="">
              <span py:when="2">OK</span>
              <span py:when="1">FAIL</span>
            </div>
          </div>
        </doc>`, `<doc>
          <div>
            <div>
              <span>OK</span>
            </div>
          </div>
        </doc>`),

		rendertest("complex nesting otherwise", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:choose="1">
            <div py:when="1" py:choose="2">
              <span py:when="1">FAIL</span>
              <span py:otherwise="">OK</span>
            </div>
          </div>
        </doc>`, `<doc>
          <div>
            <div>
              <span>OK</span>
            </div>
          </div>
        </doc>`),

		rendertest("when with strip", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:choose="" py:strip="">
            <span py:otherwise="">foo</span>
          </div>
        </doc>`, `<doc>
            <span>foo</span>
        </doc>`),

		rendertest("when outside choose", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:when="xy" />
        </doc>`, "").fails(),

		rendertest("otherwise outside choose", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:otherwise="" />
        </doc>`, "").fails(),

		rendertest("when without test", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:choose="" py:strip="">
            <py:when>foo</py:when>
          </div>
        </doc>`, "").fails(),

		rendertestwdata("when without test but with choose value", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:choose="foo" py:strip="">
            <py:when>foo</py:when>
          </div>
        </doc>`, vars{"foo": "Yeah"}, `<doc>
            foo
        </doc>`),

		rendertest("otherwise without test", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:choose="" py:strip="">
            <py:otherwise>foo</py:otherwise>
          </div>
        </doc>`, `<doc>
            foo
        </doc>`),

		rendertest("as element", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:choose>
            <py:when test="1 == 1">1</py:when>
            <py:when test="2 == 2">2</py:when>
            <py:when test="3 == 3">3</py:when>
          </py:choose>
        </doc>`, `<doc>
            1
        </doc>`),

		rendertest("compares with choose value", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:choose test="'b'">
            <py:when test="'a'">A</py:when>
            <py:when test="'b'">B</py:when>
          </py:choose>
        </doc>`, `<doc>
            B
        </doc>`),
	})
}

func TestDefDirective(t *testing.T) {
	runRenderTests(t, []renderTest{
		rendertest("function with strip", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:def="echo(what)" py:strip="">
            <b>${what}</b>
          </div>
          ${echo('foo')}
        </doc>`, `<doc>
            <b>foo</b>
        </doc>`),

		rendertest("exec in replace", `<div xmlns:py="http://genshi.edgewall.org/">
          <p py:def="echo(greeting, name='world')" class="message">
            ${greeting}, ${name}!
          </p>
          <div py:replace="echo('hello')"></div>
        </div>`, `<div>
          <p class="message">
            hello, world!
          </p>
        </div>`),

		rendertest("as element", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:def function="echo(what)">
            <b>${what}</b>
          </py:def>
          ${echo('foo')}
        </doc>`, `<doc>
            <b>foo</b>
        </doc>`),

		rendertestwdata("nested defs", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:if test="semantic">
            <strong py:def="echo(what)">${what}</strong>
          </py:if>
          <py:if test="not semantic">
            <b py:def="echo(what)">${what}</b>
          </py:if>
          ${echo('foo')}
        </doc>`, vars{"semantic": true}, `<doc>
          <strong>foo</strong>
        </doc>`),

		rendertest("function with default arg", `<doc xmlns:py="http://genshi.edgewall.org/">
          <b py:def="echo(what, bold=false)" py:strip="not bold">${what}</b>
          ${echo('foo')}
        </doc>`, `<doc>
          foo
        </doc>`),

		rendertest("keyword arguments", `<doc xmlns:py="http://genshi.edgewall.org/">
          <p py:def="echo(greeting, name='world')">${greeting}, ${name}!</p>
          ${echo('Hi', kwargs({'name': 'you'}))}
        </doc>`, `<doc>
          <p>Hi, you!</p>
        </doc>`),

		rendertestwdata("default evaluated at call time", `<doc xmlns:py="http://genshi.edgewall.org/">
          <p py:def="echo(name=who)">${name}</p>
          <py:with vars="who = 'later'">${echo()}</py:with>
        </doc>`, vars{"who": "early"}, `<doc>
          <p>later</p>
        </doc>`),

		rendertest("missing argument", `<doc xmlns:py="http://genshi.edgewall.org/">
          <p py:def="echo(greeting)">${greeting}</p>
          ${echo()}
        </doc>`, "").fails(),

		rendertest("invocation in attribute", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:def function="echo(what)">${what ?? 'something'}</py:def>
          <p class="${echo('foo')}">bar</p>
        </doc>`, `<doc>
          <p class="foo">bar</p>
        </doc>`),

		rendertest("invocation in attribute none", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:def function="echo()">${nil}</py:def>
          <p class="${echo()}">bar</p>
        </doc>`, `<doc>
          <p>bar</p>
        </doc>`),

		rendertest("def in matched", `<doc xmlns:py="http://genshi.edgewall.org/">
          <head py:match="head">${select('*')}</head>
          <head>
            <py:def function="maketitle(test)"><b py:replace="test" /></py:def>
            <title>${maketitle(true)}</title>
          </head>
        </doc>`, `<doc>
          <head><title>true</title></head>
        </doc>`),

		rendertest("function with star args", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:def="f(*args, **kwargs)">
            ${repr(args)}
            ${repr(kwargs)}
          </div>
          ${f(1, 2, kwargs({'a': 3, 'b': 4}))}
        </doc>`, `<doc>
          <div>
            [1, 2]
            {'a': 3, 'b': 4}
          </div>
        </doc>`),
	})
}

func TestForDirective(t *testing.T) {
	var oneToFive = vars{"items": []int{1, 2, 3, 4, 5}}
	runRenderTests(t, []renderTest{
		rendertestwdata("loop with strip", `<doc xmlns:py="http://genshi.edgewall.org/">
          <div py:for="item in items" py:strip="">
            <b>${item}</b>
          </div>
        </doc>`, oneToFive, `<doc>
            <b>1</b>
            <b>2</b>
            <b>3</b>
            <b>4</b>
            <b>5</b>
        </doc>`),

		rendertestwdata("condition per item", `<doc xmlns:py="http://genshi.edgewall.org/">
          <li py:for="item in items" py:if="item > 3">${item}</li>
        </doc>`, oneToFive, `<doc>
          <li>4</li><li>5</li>
        </doc>`),

		rendertestwdata("attrs per item", `<doc xmlns:py="http://genshi.edgewall.org/">
          <li py:for="item in items" py:if="item < 3" py:attrs="{'id': 'i' + string(item)}"/>
        </doc>`, oneToFive, `<doc>
          <li id="i1"/><li id="i2"/>
        </doc>`),

		rendertestwdata("choose per item", `<doc xmlns:py="http://genshi.edgewall.org/">
          <li py:for="item in items" py:if="item < 4" py:choose=""><b py:when="item == 2">two</b><i py:otherwise="">$item</i></li>
        </doc>`, oneToFive, `<doc>
          <li><i>1</i></li><li><b>two</b></li><li><i>3</i></li>
        </doc>`),

		rendertestwdata("when wraps the loop", `<doc xmlns:py="http://genshi.edgewall.org/" py:choose="">
          <b py:for="item in items" py:when="len(items) > 4">$item</b>
          <i py:otherwise="">none</i>
        </doc>`, oneToFive, `<doc>
          <b>1</b><b>2</b><b>3</b><b>4</b><b>5</b>
        </doc>`),

		rendertestwdata("as element", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:for each="item in items">
            <b>${item}</b>
          </py:for>
        </doc>`, oneToFive, `<doc>
            <b>1</b>
            <b>2</b>
            <b>3</b>
            <b>4</b>
            <b>5</b>
        </doc>`),

		rendertestwdata("multi assignment", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:for each="k, v in items">
            <p>key=$k, value=$v</p>
          </py:for>
        </doc>`, vars{"items": [][]interface{}{{"a", 1}, {"b", 2}}}, `<doc>
            <p>key=a, value=1</p>
            <p>key=b, value=2</p>
        </doc>`),

		rendertest("destructures items", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:for each="(k, v) in items({'a': 1, 'b': 2})">
            <p>key=$k, value=$v</p>
          </py:for>
        </doc>`, `<doc>
            <p>key=a, value=1</p>
            <p>key=b, value=2</p>
        </doc>`),

		rendertestwdata("nested assignment", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:for each="idx, (k, v) in enumerate(items)">
            <p>$idx: key=$k, value=$v</p>
          </py:for>
        </doc>`, vars{"items": [][]interface{}{{"a", 1}, {"b", 2}}}, `<doc>
            <p>0: key=a, value=1</p>
            <p>1: key=b, value=2</p>
        </doc>`),

		rendertestwdata("loop variable does not leak", `<doc xmlns:py="http://genshi.edgewall.org/">
          <b py:for="item in items">$item</b>
          $item
        </doc>`, vars{"items": []string{"a"}, "item": "outer"}, `<doc>
          <b>a</b>
          outer
        </doc>`),

		rendertestwdata("not iterable", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:for each="item in foo">
            $item
          </py:for>
        </doc>`, vars{"foo": 12}, "").fails(),
	})
}

func TestIfDirective(t *testing.T) {
	var data = vars{"foo": true, "bar": "Hello"}
	runRenderTests(t, []renderTest{
		rendertestwdata("loop with strip", `<doc xmlns:py="http://genshi.edgewall.org/">
          <b py:if="foo" py:strip="">${bar}</b>
        </doc>`, data, `<doc>
          Hello
        </doc>`),

		rendertestwdata("as element", `<doc xmlns:py="http://genshi.edgewall.org/">
          <py:if test="foo">${bar}</py:if>
        </doc>`, data, `<doc>
          Hello
        </doc>`),

		rendertestwdata("false", `<doc xmlns:py="http://genshi.edgewall.org/">
          <b py:if="not foo">${bar}</b>
        </doc>`, data, `<doc>
        </doc>`),
	})
}

func TestReplaceContentStripDirectives(t *testing.T) {
	runRenderTests(t, []renderTest{
		rendertestwdata("replace as element", `<div xmlns:py="http://genshi.edgewall.org/">
          <py:replace value="title" />
        </div>`, vars{"title": "Bench"}, `<div>
          Bench
        </div>`),

		rendertest("content", `<div xmlns:py="http://genshi.edgewall.org/">
          <p py:content="'new'">old <b>stuff</b></p>
        </div>`, `<div>
          <p>new</p>
        </div>`),

		rendertest("strip false", `<div xmlns:py="http://genshi.edgewall.org/">
          <div py:strip="false"><b>foo</b></div>
        </div>`, `<div>
          <div><b>foo</b></div>
        </div>`),

		rendertest("strip empty", `<div xmlns:py="http://genshi.edgewall.org/">
          <div py:strip=""><b>foo</b></div>
        </div>`, `<div>
          <b>foo</b>
        </div>`),

		rendertest("strip expression", `<div xmlns:py="http://genshi.edgewall.org/">
          <div py:strip="1 + 1 == 2"><b>foo</b></div>
        </div>`, `<div>
          <b>foo</b>
        </div>`),
	})
}

func TestWithDirective(t *testing.T) {
	var x = vars{"x": 42}
	runRenderTests(t, []renderTest{
		rendertestwdata("shadowing", `<div xmlns:py="http://genshi.edgewall.org/">
          ${x}
          <span py:with="x = x * 2" py:replace="x"/>
          ${x}
        </div>`, x, `<div>
          42
          84
          42
        </div>`),

		rendertestwdata("as element", `<div xmlns:py="http://genshi.edgewall.org/">
          <py:with vars="x = x * 2">${x}</py:with>
        </div>`, x, `<div>
          84
        </div>`),

		rendertestwdata("multiple vars same name", `<div xmlns:py="http://genshi.edgewall.org/">
          <py:with vars="
            foo = 'bar';
            foo = replace(foo, 'r', 'z')
          ">
            $foo
          </py:with>
        </div>`, x, `<div>
            baz
        </div>`),

		rendertestwdata("multiple vars single assignment", `<div xmlns:py="http://genshi.edgewall.org/">
          <py:with vars="x = y = z = 1">${x} ${y} ${z}</py:with>
        </div>`, x, `<div>
          1 1 1
        </div>`),

		rendertestwdata("nested vars single assignment", `<div xmlns:py="http://genshi.edgewall.org/">
          <py:with vars="x, (y, z) = [1, [2, 3]]">${x} ${y} ${z}</py:with>
        </div>`, x, `<div>
          1 2 3
        </div>`),

		rendertestwdata("multiple vars trailing semicolon", `<div xmlns:py="http://genshi.edgewall.org/">
          <py:with vars="x = x * 2; y = x / 2;">${x} ${y}</py:with>
        </div>`, x, `<div>
          84 42
        </div>`),

		rendertest("semicolon escape", `<div xmlns:py="http://genshi.edgewall.org/">
          <py:with vars="x = 'here is a semicolon: ;'; y = 'here are two semicolons: ;;' ;">
            ${x}
            ${y}
          </py:with>
        </div>`, `<div>
            here is a semicolon: ;
            here are two semicolons: ;;
        </div>`),

		rendertestwdata("member access", `<div xmlns:py="http://genshi.edgewall.org/">
          <span py:with="bar=foo.bar">
            $bar
          </span>
        </div>`, vars{"foo": vars{"bar": 42}}, `<div>
          <span>
            42
          </span>
        </div>`),

		rendertest("unicode expr", `<div xmlns:py="http://genshi.edgewall.org/">
          <span py:with="weeks=['一', '二', '三', '四', '五', '六', '日']">
            $weeks
          </span>
        </div>`, `<div>
          <span>
            一二三四五六日
          </span>
        </div>`),

		rendertest("with empty value", `<div xmlns:py="http://genshi.edgewall.org/">
          <span py:with="">Text</span></div>`, `<div>
          <span>Text</span></div>`),
	})
}

func TestInterpolation(t *testing.T) {
	runRenderTests(t, []renderTest{
		rendertestwdata("simple names", `<p>$greeting, $user.name!</p>`,
			vars{"greeting": "Hello", "user": vars{"name": "Joe"}}, `<p>Hello, Joe!</p>`),
		rendertest("escaped dollar", `<p>$$5 and $ alone, ${'$'}</p>`, `<p>$5 and $ alone, $</p>`),
		rendertest("braces in expression", `<p>${len({'a': 1, 'b': '}'})}</p>`, `<p>2</p>`),
		rendertest("attribute", `<a href="/users/${'joe'}/">x</a>`, `<a href="/users/joe/">x</a>`),
		rendertest("text is escaped", `<p>${'&lt;b&gt;'}</p>`, `<p>&lt;b&gt;</p>`),
		rendertest("numbers", `<p>${1.5 * 2} ${10 / 4}</p>`, `<p>3 2.5</p>`),
		rendertest("template comments", `<p><!-- kept --><!-- ! dropped --></p>`, `<p><!-- kept --></p>`),
	})
}

func TestSyntaxErrors(t *testing.T) {
	var tests = []struct {
		name  string
		input string
	}{
		{"for with empty value", `<doc xmlns:py="http://genshi.edgewall.org/">
                                    <py:for each="">
                                      empty
                                    </py:for>
                                  </doc>`},
		{"for without in", `<doc xmlns:py="http://genshi.edgewall.org/">
          <p py:for="item">x</p>
        </doc>`},
		{"content as element", `<doc xmlns:py="http://genshi.edgewall.org/">
                                    <py:content foo="">Foo</py:content>
                                  </doc>`},
		{"replace with empty value", `<doc xmlns:py="http://genshi.edgewall.org/">
                  <elem py:replace="">Foo</elem>
                </doc>`},
		{"bad expression", `<doc xmlns:py="http://genshi.edgewall.org/">
          <p py:if="1 +">x</p>
        </doc>`},
		{"bad signature", `<doc xmlns:py="http://genshi.edgewall.org/">
          <p py:def="1echo()">x</p>
        </doc>`},
		{"bad path", `<doc xmlns:py="http://genshi.edgewall.org/">
          <p py:match="body[">x</p>
        </doc>`},
	}
	for _, test := range tests {
		var _, err = ParseString("test.html", test.input, nil)
		var serr, ok = err.(*errortypes.SyntaxError)
		if !ok {
			t.Errorf("%s: expected a syntax error, got %v", test.name, err)
			continue
		}
		if serr.Filename != "test.html" || serr.Lineno != 2 {
			t.Errorf("%s: expected test.html:2, got %s:%d", test.name, serr.Filename, serr.Lineno)
		}
	}
}

func TestBadDirective(t *testing.T) {
	for _, input := range []string{
		`<doc xmlns:py="http://genshi.edgewall.org/"><p py:unknown="">x</p></doc>`,
		`<doc xmlns:py="http://genshi.edgewall.org/"><py:unknown>x</py:unknown></doc>`,
	} {
		var _, err = ParseString("test.html", input, nil)
		var bad, ok = err.(*errortypes.BadDirectiveError)
		if !ok {
			t.Errorf("expected BadDirectiveError, got %v", err)
			continue
		}
		if bad.Name != "unknown" {
			t.Errorf("unexpected directive name %q", bad.Name)
		}
	}
}

func TestDirectiveNamespaceRemoved(t *testing.T) {
	var tmpl, err = ParseString("ns.xml", `<doc xmlns="urn:doc" xmlns:py="http://genshi.edgewall.org/"><p py:if="true">x</p></doc>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	var out, rerr = tmpl.Generate(nil).Render(markup.XML)
	if rerr != nil {
		t.Fatal(rerr)
	}
	if strings.Contains(out, "genshi") {
		t.Errorf("directive namespace left in output: %s", out)
	}
	if out != `<doc xmlns="urn:doc"><p>x</p></doc>` {
		t.Errorf("unexpected output %s", out)
	}
}

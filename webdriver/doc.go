/*
Package webdriver is a small W3C WebDriver client used to drive the browser
under test.

It speaks the JSON wire format of https://www.w3.org/TR/webdriver directly,
either to a locally started driver process (see NewChromeDriverService and
NewGeckoDriverService) or to a hosted grid such as Sauce Labs.

Example usage:

	caps := webdriver.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{Args: []string{"--headless"}})
	wd, err := webdriver.NewRemote(caps, "http://127.0.0.1:9515/wd/hub")
	if err != nil {
		return err
	}
	defer wd.Quit()

	if err := wd.Get("https://parabank.parasoft.com/parabank/index.htm"); err != nil {
		return err
	}
	link, err := wd.FindElement(webdriver.ByCSSSelector, `a[href*="register.htm"]`)
	if err != nil {
		return err
	}
	return link.Click()
*/
package webdriver
